package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"cinetrail/models"
)

const (
	defaultTMDBBaseURL = "https://api.themoviedb.org/3"
	defaultTMDBRPS     = 40
	tmdbRetryAttempts  = 3
	tmdbRetryDelay     = 500 * time.Millisecond
	maxTMDBErrorBody   = 512
)

type tmdbClient struct {
	apiKey     string
	language   string
	baseURL    string
	httpc      *http.Client
	limiter    *rate.Limiter
	attempts   uint
	retryDelay time.Duration
}

func newTMDBClient(apiKey, lang, baseURL string, httpc *http.Client, rps float64) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultTMDBBaseURL
	}
	if rps <= 0 {
		rps = defaultTMDBRPS
	}
	return &tmdbClient{
		apiKey:     strings.TrimSpace(apiKey),
		language:   normalizeLanguage(lang),
		baseURL:    baseURL,
		httpc:      httpc,
		limiter:    rate.NewLimiter(rate.Limit(rps), limiterBurst(rps)),
		attempts:   tmdbRetryAttempts,
		retryDelay: tmdbRetryDelay,
	}
}

// limiterBurst lets at least one request through so fractional rates below
// one per second still make progress.
func limiterBurst(rps float64) int {
	return max(1, int(math.Ceil(rps)))
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// normalizeLanguage turns user supplied language settings into the xx-YY form
// TMDB expects. Tags without an explicit region default to US.
func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return "en-US"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en-US"
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf != language.Exact {
		return base.String() + "-US"
	}
	return base.String() + "-" + region.String()
}

// statusError is returned for non-2xx TMDB responses.
type statusError struct {
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("tmdb %s: %d %s", e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("tmdb %s: %d", e.Path, e.Status)
}

func (e *statusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUpstream
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	var de *decodeError
	return !errors.As(err, &de)
}

type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string { return fmt.Sprintf("decode tmdb %s: %v", e.path, e.err) }
func (e *decodeError) Unwrap() error { return e.err }

// get issues a GET against the TMDB API and decodes the JSON response into v.
func (c *tmdbClient) get(ctx context.Context, path string, params url.Values, v any) error {
	if !c.isConfigured() {
		return ErrNotConfigured
	}

	q := url.Values{}
	for k, vals := range params {
		q[k] = append([]string(nil), vals...)
	}
	q.Set("api_key", c.apiKey)
	// An explicitly empty language drops the filter entirely.
	if _, ok := q["language"]; !ok {
		q.Set("language", c.language)
	} else if q.Get("language") == "" {
		q.Del("language")
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			return c.do(ctx, path, endpoint, v)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
}

func (c *tmdbClient) do(ctx context.Context, path, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("build tmdb request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTMDBErrorBody))
		return &statusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(extractTMDBMessage(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &decodeError{path: path, err: err}
	}
	return nil
}

// extractTMDBMessage pulls status_message out of a TMDB error body.
func extractTMDBMessage(body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.StatusMessage != "" {
		return payload.StatusMessage
	}
	return string(body)
}

type tmdbPage[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

func (c *tmdbClient) moviePage(ctx context.Context, path string, params url.Values) ([]models.Movie, error) {
	var page tmdbPage[models.Movie]
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []models.Movie{}, nil
	}
	return page.Results, nil
}

func (c *tmdbClient) discover(ctx context.Context) ([]models.Movie, error) {
	return c.moviePage(ctx, "/discover/movie", url.Values{"sort_by": {"popularity.desc"}})
}

func (c *tmdbClient) search(ctx context.Context, query string) ([]models.Movie, error) {
	return c.moviePage(ctx, "/search/movie", url.Values{"query": {query}})
}

func (c *tmdbClient) trending(ctx context.Context) ([]models.Movie, error) {
	return c.moviePage(ctx, "/trending/movie/week", nil)
}

func (c *tmdbClient) movieDetails(ctx context.Context, id int64) (*models.MovieDetails, error) {
	var details models.MovieDetails
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *tmdbClient) movieVideos(ctx context.Context, id int64) ([]models.Video, error) {
	path := "/movie/" + strconv.FormatInt(id, 10) + "/videos"
	var payload struct {
		Results json.RawMessage `json:"results"`
	}
	// Videos are requested without a language filter so every locale is returned.
	if err := c.get(ctx, path, url.Values{"language": {""}}, &payload); err != nil {
		return nil, err
	}
	videos, err := models.ParseVideos(payload.Results)
	if err != nil {
		return nil, &decodeError{path: path, err: err}
	}
	return videos, nil
}

func (c *tmdbClient) movieCredits(ctx context.Context, id int64) ([]models.CastMember, error) {
	var payload struct {
		Cast []models.CastMember `json:"cast"`
	}
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", nil, &payload); err != nil {
		return nil, err
	}
	cast := payload.Cast
	if cast == nil {
		cast = []models.CastMember{}
	}
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	return cast, nil
}

func (c *tmdbClient) movieReviews(ctx context.Context, id int64) ([]models.Review, error) {
	var page tmdbPage[models.Review]
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/reviews", nil, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []models.Review{}, nil
	}
	return page.Results, nil
}
