// Command videostats prints how a movie's videos break down into trailers,
// behind-the-scenes material and clips.
//
//	videostats [-json] [-config path] <movieID>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"cinetrail/config"
	"cinetrail/models"
	"cinetrail/services/metadata"
	"cinetrail/services/videos"
)

var errUsage = errors.New("usage: videostats [-json] [-config path] <movieID>")

type videoSource interface {
	MovieVideos(ctx context.Context, id int64) ([]models.Video, error)
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "videostats"})

	fs := flag.NewFlagSet("videostats", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the breakdown as JSON")
	configPath := fs.String("config", "", "path to config.yaml")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(os.Args[1:])
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if fs.NArg() != 1 {
		logger.Fatal(errUsage)
	}
	id, err := metadata.ParseMovieID(fs.Arg(0))
	if err != nil {
		logger.Fatal("bad movie id", "arg", fs.Arg(0), "err", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	svc := metadata.NewService(metadata.Options{
		APIKey:            cfg.TMDB.APIKey,
		Language:          cfg.TMDB.Language,
		BaseURL:           cfg.TMDB.BaseURL,
		CacheDir:          filepath.Join(cfg.Storage.DataDir, "cache"),
		CacheTTLHours:     cfg.Storage.CacheTTLHours,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: cfg.TMDB.Timeout},
	})
	if !svc.IsConfigured() {
		logger.Fatal("TMDB_API_KEY is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Debug("fetching videos", "movie", id)
	if err := run(ctx, svc, id, *asJSON, os.Stdout); err != nil {
		logger.Fatal("fetch videos", "movie", id, "err", err)
	}
}

func run(ctx context.Context, src videoSource, id int64, asJSON bool, out io.Writer) error {
	found, err := src.MovieVideos(ctx, id)
	if err != nil {
		return err
	}
	breakdown := videos.Classify(found)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdown)
	}
	_, err = io.WriteString(out, render(id, breakdown))
	return err
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func render(id int64, b models.VideoBreakdown) string {
	var sb strings.Builder
	sb.WriteString(headingStyle.Render(fmt.Sprintf("Movie %d", id)) + "\n")
	fmt.Fprintf(&sb, "  total %d  trailers %d  behind the scenes %d  clips %d\n",
		b.Stats.TotalVideos, b.Stats.Trailers, b.Stats.BehindTheScenes, b.Stats.Clips)

	if b.PrimaryTrailer != nil {
		fmt.Fprintf(&sb, "  primary trailer: %s %s\n", b.PrimaryTrailer.Name, youtubeURL(b.PrimaryTrailer.Key))
	} else {
		sb.WriteString(mutedStyle.Render("  no official trailer") + "\n")
	}

	for _, section := range []struct {
		title string
		list  []models.Video
	}{
		{"Trailers", b.Trailers},
		{"Behind the scenes", b.BehindTheScenes},
		{"Clips", b.Clips},
	} {
		if len(section.list) == 0 {
			continue
		}
		sb.WriteString("\n" + headingStyle.Render(section.title) + "\n")
		for _, v := range section.list {
			fmt.Fprintf(&sb, "  - %s (%s) %s\n", v.Name, v.Type, youtubeURL(v.Key))
		}
	}
	if !b.Stats.HasContent {
		sb.WriteString(mutedStyle.Render("  nothing playable") + "\n")
	}
	return sb.String()
}

func youtubeURL(key string) string {
	return "https://www.youtube.com/watch?v=" + key
}
