// Package videos classifies a movie's promotional videos into trailers,
// behind-the-scenes material and clips, and picks the trailer offered for
// default playback.
//
// Every function is pure: inputs are never modified, outputs are fresh
// slices that keep the input order, and nothing is cached between calls.
package videos

import "cinetrail/models"

var behindTheScenesTypes = map[string]struct{}{
	models.VideoTypeBehindTheScenes: {},
	models.VideoTypeFeaturette:      {},
	models.VideoTypeMakingOf:        {},
}

func isPlayable(v models.Video) bool {
	return v.Site == models.VideoSiteYouTube && v.Type != ""
}

func isTrailer(v models.Video) bool {
	if !isPlayable(v) || !v.Official {
		return false
	}
	return v.Type == models.VideoTypeTrailer || v.Type == models.VideoTypeTeaser
}

func isBehindTheScenes(v models.Video) bool {
	if !isPlayable(v) {
		return false
	}
	_, ok := behindTheScenesTypes[v.Type]
	return ok
}

func isClip(v models.Video) bool {
	return isPlayable(v) && v.Type == models.VideoTypeClip
}

func filter(videos []models.Video, keep func(models.Video) bool) []models.Video {
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Trailers returns the official YouTube trailers and teasers.
func Trailers(videos []models.Video) []models.Video {
	return filter(videos, isTrailer)
}

// BehindTheScenes returns YouTube behind-the-scenes, featurette and making-of videos.
func BehindTheScenes(videos []models.Video) []models.Video {
	return filter(videos, isBehindTheScenes)
}

// Clips returns YouTube clips.
func Clips(videos []models.Video) []models.Video {
	return filter(videos, isClip)
}

// Playable returns every YouTube video regardless of category. A record
// without a type is not considered playable.
func Playable(videos []models.Video) []models.Video {
	return filter(videos, isPlayable)
}

// PrimaryTrailer picks the first full trailer, falling back to the first
// teaser. It reports false when there are no official YouTube trailers.
func PrimaryTrailer(videos []models.Video) (models.Video, bool) {
	trailers := Trailers(videos)
	if len(trailers) == 0 {
		return models.Video{}, false
	}
	for _, v := range trailers {
		if v.Type == models.VideoTypeTrailer {
			return v, true
		}
	}
	return trailers[0], true
}

// HasWatchableContent reports whether any playable video exists.
func HasWatchableContent(videos []models.Video) bool {
	for _, v := range videos {
		if isPlayable(v) {
			return true
		}
	}
	return false
}

// Stats counts each category in a single pass.
func Stats(videos []models.Video) models.VideoStats {
	var stats models.VideoStats
	for _, v := range videos {
		if !isPlayable(v) {
			continue
		}
		stats.TotalVideos++
		switch {
		case isTrailer(v):
			stats.Trailers++
		case isBehindTheScenes(v):
			stats.BehindTheScenes++
		case isClip(v):
			stats.Clips++
		}
	}
	stats.HasContent = stats.TotalVideos > 0
	return stats
}

// Classify computes every derived view at once.
func Classify(videos []models.Video) models.VideoBreakdown {
	breakdown := models.VideoBreakdown{
		Trailers:        Trailers(videos),
		BehindTheScenes: BehindTheScenes(videos),
		Clips:           Clips(videos),
		Playable:        Playable(videos),
		Stats:           Stats(videos),
	}
	if primary, ok := PrimaryTrailer(videos); ok {
		breakdown.PrimaryTrailer = &primary
	}
	return breakdown
}
