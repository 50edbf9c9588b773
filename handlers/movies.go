package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cinetrail/models"
	"cinetrail/services/metadata"
	"cinetrail/services/searchstats"
	"cinetrail/services/videos"
)

type movieService interface {
	Search(ctx context.Context, query string) ([]models.Movie, error)
	Trending(ctx context.Context) ([]models.Movie, error)
	MovieDetails(ctx context.Context, id int64) (*models.MovieDetails, error)
	MovieVideos(ctx context.Context, id int64) ([]models.Video, error)
	MovieCredits(ctx context.Context, id int64) ([]models.CastMember, error)
	MovieReviews(ctx context.Context, id int64) ([]models.Review, error)
	MovieWithVideos(ctx context.Context, id int64) (*models.MovieWithVideos, error)
	SearchWithVideos(ctx context.Context, query string) ([]models.MovieVideoSummary, error)
}

var _ movieService = (*metadata.Service)(nil)

type searchTracker interface {
	Record(ctx context.Context, term string, movie models.Movie) (*models.SearchCount, error)
	Top(ctx context.Context, limit int) ([]models.SearchCount, error)
}

var _ searchTracker = (*searchstats.Service)(nil)

type MoviesHandler struct {
	Service  movieService
	Searches searchTracker
}

func NewMoviesHandler(s movieService, searches searchTracker) *MoviesHandler {
	return &MoviesHandler{Service: s, Searches: searches}
}

func (h *MoviesHandler) movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := metadata.ParseMovieID(mux.Vars(r)["id"])
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// List searches when ?query= is set and lists popular movies otherwise. A
// search with results counts a hit for its first result.
func (h *MoviesHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	movies, err := h.Service.Search(r.Context(), query)
	if err != nil {
		log.Printf("[movies] search %q failed: %v", query, err)
		respondError(w, err, http.StatusBadGateway)
		return
	}
	if movies == nil {
		movies = []models.Movie{}
	}

	if query != "" && len(movies) > 0 && h.Searches != nil {
		if _, err := h.Searches.Record(r.Context(), query, movies[0]); err != nil {
			log.Printf("[movies] failed to record search %q: %v", query, err)
		}
	}

	writeJSON(w, http.StatusOK, movies)
}

func (h *MoviesHandler) Trending(w http.ResponseWriter, r *http.Request) {
	movies, err := h.Service.Trending(r.Context())
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

func (h *MoviesHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	details, err := h.Service.MovieDetails(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *MoviesHandler) Credits(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	cast, err := h.Service.MovieCredits(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cast)
}

func (h *MoviesHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	reviews, err := h.Service.MovieReviews(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// Videos returns the movie's videos split into trailers, behind-the-scenes
// and clips, with the primary trailer and counts.
func (h *MoviesHandler) Videos(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	found, err := h.Service.MovieVideos(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, videos.Classify(found))
}

// Trailers returns only the official YouTube trailers and teasers.
func (h *MoviesHandler) Trailers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	found, err := h.Service.MovieVideos(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, videos.Trailers(found))
}

// Bundle returns details and classified videos in one response.
func (h *MoviesHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.movieID(w, r)
	if !ok {
		return
	}
	bundle, err := h.Service.MovieWithVideos(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// SearchVideos annotates search results with video availability.
func (h *MoviesHandler) SearchVideos(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	results, err := h.Service.SearchWithVideos(r.Context(), query)
	if err != nil {
		respondError(w, err, http.StatusBadGateway)
		return
	}
	if results == nil {
		results = []models.MovieVideoSummary{}
	}
	writeJSON(w, http.StatusOK, results)
}

// TopSearches lists the most frequent search terms.
func (h *MoviesHandler) TopSearches(w http.ResponseWriter, r *http.Request) {
	if h.Searches == nil {
		writeJSON(w, http.StatusOK, []models.SearchCount{})
		return
	}
	top, err := h.Searches.Top(r.Context(), trimAndParseInt(r.URL.Query().Get("limit")))
	if err != nil {
		log.Printf("[movies] top searches failed: %v", err)
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, top)
}
