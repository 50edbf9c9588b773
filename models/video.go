package models

import (
	"bytes"
	"encoding/json"
)

// Provider labels recognised by the video classifier. Matching is exact.
const (
	VideoSiteYouTube = "YouTube"

	VideoTypeTrailer         = "Trailer"
	VideoTypeTeaser          = "Teaser"
	VideoTypeBehindTheScenes = "Behind the Scenes"
	VideoTypeFeaturette      = "Featurette"
	VideoTypeMakingOf        = "Making of"
	VideoTypeClip            = "Clip"
)

// Video is a single promotional-video entry returned by the metadata provider.
// Fields that were absent or malformed in the provider payload hold their zero value.
type Video struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Site        string `json:"site"`
	Official    bool   `json:"official"`
	Size        int    `json:"size"`
	PublishedAt string `json:"published_at"`
	Language    string `json:"iso_639_1,omitempty"`
	Region      string `json:"iso_3166_1,omitempty"`
}

// VideoStats summarises a video list.
type VideoStats struct {
	TotalVideos     int  `json:"totalVideos"`
	Trailers        int  `json:"trailers"`
	BehindTheScenes int  `json:"behindTheScenes"`
	Clips           int  `json:"clips"`
	HasContent      bool `json:"hasContent"`
}

// VideoBreakdown bundles every derived view of a movie's videos.
type VideoBreakdown struct {
	Trailers        []Video    `json:"trailers"`
	BehindTheScenes []Video    `json:"behindTheScenes"`
	Clips           []Video    `json:"clips"`
	Playable        []Video    `json:"playable"`
	PrimaryTrailer  *Video     `json:"primaryTrailer"`
	Stats           VideoStats `json:"stats"`
}

// rawVideo mirrors the provider payload with every field left undecoded so
// each one can fail independently.
type rawVideo struct {
	ID          json.RawMessage `json:"id"`
	Key         json.RawMessage `json:"key"`
	Name        json.RawMessage `json:"name"`
	Type        json.RawMessage `json:"type"`
	Site        json.RawMessage `json:"site"`
	Official    json.RawMessage `json:"official"`
	Size        json.RawMessage `json:"size"`
	PublishedAt json.RawMessage `json:"published_at"`
	Language    json.RawMessage `json:"iso_639_1"`
	Region      json.RawMessage `json:"iso_3166_1"`
}

// ParseVideos decodes a provider "results" array. Entries that are not JSON
// objects are dropped; fields that are missing or carry the wrong JSON type
// default to their zero value.
func ParseVideos(data []byte) ([]Video, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Video{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(entries))
	for _, entry := range entries {
		var raw rawVideo
		if err := json.Unmarshal(entry, &raw); err != nil {
			continue
		}
		videos = append(videos, raw.toVideo())
	}
	return videos, nil
}

func (r rawVideo) toVideo() Video {
	return Video{
		ID:          stringField(r.ID),
		Key:         stringField(r.Key),
		Name:        stringField(r.Name),
		Type:        stringField(r.Type),
		Site:        stringField(r.Site),
		Official:    boolField(r.Official),
		Size:        intField(r.Size),
		PublishedAt: stringField(r.PublishedAt),
		Language:    stringField(r.Language),
		Region:      stringField(r.Region),
	}
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func boolField(raw json.RawMessage) bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

func intField(raw json.RawMessage) int {
	var n json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}
