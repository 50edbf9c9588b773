// Package metadata fetches movie metadata from TMDB and caches responses on disk.
package metadata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/iter"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"cinetrail/models"
	"cinetrail/services/videos"
)

var (
	ErrNotConfigured = errors.New("tmdb api key not configured")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("metadata provider error")
	ErrInvalidID     = errors.New("invalid movie id")
)

const defaultCacheTTLHours = 24

// searchVideoLimit caps how many search results get a per-movie video lookup.
const (
	searchVideoLimit  = 10
	searchVideoFanout = 4
)

// Options configures a metadata Service.
type Options struct {
	APIKey            string
	Language          string
	BaseURL           string
	CacheDir          string
	CacheTTLHours     int
	RequestsPerSecond float64
	HTTPClient        *http.Client
	// Fs backs the response cache. Defaults to the OS filesystem.
	Fs afero.Fs
}

type Service struct {
	mu    sync.RWMutex
	tmdb  *tmdbClient
	opts  Options
	cache *fileCache
	group singleflight.Group
	log   *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.CacheTTLHours <= 0 {
		opts.CacheTTLHours = defaultCacheTTLHours
	}
	// Keep metadata apart from other data stored under the same directory.
	cacheDir := filepath.Join(opts.CacheDir, "metadata")
	return &Service{
		tmdb:  newTMDBClient(opts.APIKey, opts.Language, opts.BaseURL, opts.HTTPClient, opts.RequestsPerSecond),
		opts:  opts,
		cache: newFileCache(opts.Fs, cacheDir, opts.CacheTTLHours),
		log:   slog.Default().With("component", "metadata"),
	}
}

// UpdateAPIKey swaps the TMDB credentials and language, dropping cached
// responses fetched with the previous settings.
func (s *Service) UpdateAPIKey(apiKey, language string) {
	s.mu.Lock()
	s.opts.APIKey = apiKey
	s.opts.Language = language
	s.tmdb = newTMDBClient(apiKey, language, s.opts.BaseURL, s.opts.HTTPClient, s.opts.RequestsPerSecond)
	s.mu.Unlock()

	if removed, err := s.cache.clear(); err != nil {
		s.log.Warn("failed to clear cache", "error", err)
	} else {
		s.log.Info("cleared metadata cache after settings change", "removed", removed)
	}
}

func (s *Service) client() *tmdbClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tmdb
}

// IsConfigured reports whether a TMDB API key is set.
func (s *Service) IsConfigured() bool {
	return s.client().isConfigured()
}

// ClearCache removes all cached responses.
func (s *Service) ClearCache() error {
	_, err := s.cache.clear()
	return err
}

// PruneCache removes expired cached responses and reports how many were dropped.
func (s *Service) PruneCache() (int, error) {
	return s.cache.prune()
}

// ParseMovieID validates a TMDB movie id taken from a path or query string.
func ParseMovieID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// cached serves key from the disk cache, otherwise fetches it once no matter
// how many callers miss at the same time.
func cached[T any](ctx context.Context, s *Service, fetch func(context.Context, *tmdbClient) (T, error), parts ...string) (T, error) {
	var zero T
	client := s.client()
	if !client.isConfigured() {
		return zero, ErrNotConfigured
	}

	key := cacheKey(append([]string{"tmdb"}, append(parts, client.language)...)...)
	var hit T
	if ok, _ := s.cache.get(key, &hit); ok {
		return hit, nil
	}

	// The shared fetch outlives any single caller; the HTTP client timeout
	// still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		fresh, err := fetch(flightCtx, client)
		if err != nil {
			return nil, err
		}
		if err := s.cache.set(key, fresh); err != nil {
			s.log.Debug("cache write failed", "error", err)
		}
		return fresh, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Discover lists popular movies.
func (s *Service) Discover(ctx context.Context) ([]models.Movie, error) {
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) ([]models.Movie, error) {
		return c.discover(ctx)
	}, "discover", "popularity.desc")
}

// Search finds movies by title. An empty query falls back to Discover.
func (s *Service) Search(ctx context.Context, query string) ([]models.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Discover(ctx)
	}
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) ([]models.Movie, error) {
		return c.search(ctx, query)
	}, "search", strings.ToLower(query))
}

// Trending lists this week's trending movies.
func (s *Service) Trending(ctx context.Context) ([]models.Movie, error) {
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) ([]models.Movie, error) {
		return c.trending(ctx)
	}, "trending", "week")
}

func (s *Service) MovieDetails(ctx context.Context, id int64) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) (*models.MovieDetails, error) {
		return c.movieDetails(ctx, id)
	}, "movie", strconv.FormatInt(id, 10))
}

// MovieVideos returns every video TMDB lists for the movie, in provider order.
func (s *Service) MovieVideos(ctx context.Context, id int64) ([]models.Video, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) ([]models.Video, error) {
		return c.movieVideos(ctx, id)
	}, "movie", strconv.FormatInt(id, 10), "videos")
}

func (s *Service) MovieCredits(ctx context.Context, id int64) ([]models.CastMember, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) ([]models.CastMember, error) {
		return c.movieCredits(ctx, id)
	}, "movie", strconv.FormatInt(id, 10), "credits")
}

func (s *Service) MovieReviews(ctx context.Context, id int64) ([]models.Review, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return cached(ctx, s, func(ctx context.Context, c *tmdbClient) ([]models.Review, error) {
		return c.movieReviews(ctx, id)
	}, "movie", strconv.FormatInt(id, 10), "reviews")
}

// MovieWithVideos fetches details and videos concurrently. Either failure
// fails the whole call.
func (s *Service) MovieWithVideos(ctx context.Context, id int64) (*models.MovieWithVideos, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	var (
		details     *models.MovieDetails
		movieVideos []models.Video
	)
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		d, err := s.MovieDetails(ctx, id)
		details = d
		return err
	})
	p.Go(func(ctx context.Context) error {
		v, err := s.MovieVideos(ctx, id)
		movieVideos = v
		return err
	})
	if err := p.Wait(); err != nil {
		s.log.Warn("movie with videos failed", "movieId", id, "error", err)
		return nil, err
	}

	return &models.MovieWithVideos{
		Movie:     details,
		Videos:    movieVideos,
		Breakdown: videos.Classify(movieVideos),
	}, nil
}

// SearchWithVideos searches and annotates the first results with video
// availability. A failed video lookup only degrades its own entry.
func (s *Service) SearchWithVideos(ctx context.Context, query string) ([]models.MovieVideoSummary, error) {
	movies, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(movies) > searchVideoLimit {
		movies = movies[:searchVideoLimit]
	}

	mapper := iter.Mapper[models.Movie, models.MovieVideoSummary]{MaxGoroutines: searchVideoFanout}
	return mapper.Map(movies, func(m *models.Movie) models.MovieVideoSummary {
		summary := models.MovieVideoSummary{Movie: *m}
		found, err := s.MovieVideos(ctx, m.ID)
		if err != nil {
			s.log.Debug("video lookup failed", "movieId", m.ID, "error", err)
			return summary
		}
		summary.HasVideos = len(found) > 0
		summary.TrailerCount = len(videos.Trailers(found))
		return summary
	}), nil
}
