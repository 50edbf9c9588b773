package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"cinetrail/api"
	"cinetrail/internal/auth"
)

// Routes groups everything RegisterRoutes mounts.
type Routes struct {
	Auth      *AuthHandler
	Movies    *MoviesHandler
	Favorites *FavoritesHandler
	Jobs      *JobsHandler

	Sessions     api.SessionValidator
	LoginLimiter *api.IPRateLimiter
	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Nil trusts nobody.
	TrustedProxies *api.TrustedProxies
	// JobsAccountID is the only account allowed to see and run jobs.
	JobsAccountID string
}

// RegisterRoutes mounts the API on r. Handlers left nil are skipped.
func RegisterRoutes(r *mux.Router, rt Routes) {
	r.Use(api.RealIPMiddleware(rt.TrustedProxies))
	requireAuth := api.AccountAuthMiddleware(rt.Sessions)
	optionalAuth := api.OptionalAuthMiddleware(rt.Sessions)
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		if rt.LoginLimiter == nil {
			return h
		}
		return api.RateLimitHandlerFunc(rt.LoginLimiter, h)
	}

	if rt.Auth != nil {
		authRouter := r.PathPrefix("/api/auth").Subrouter()
		authRouter.HandleFunc("/register", limited(rt.Auth.Register)).Methods(http.MethodPost, http.MethodOptions)
		authRouter.HandleFunc("/login", limited(rt.Auth.Login)).Methods(http.MethodPost, http.MethodOptions)
		authRouter.HandleFunc("/logout", rt.Auth.Logout).Methods(http.MethodPost, http.MethodOptions)
		authRouter.HandleFunc("/me", rt.Auth.Me).Methods(http.MethodGet, http.MethodOptions)
		authRouter.HandleFunc("/refresh", rt.Auth.Refresh).Methods(http.MethodPost, http.MethodOptions)
		authRouter.Handle("/me", requireAuth(http.HandlerFunc(rt.Auth.UpdateMe))).Methods(http.MethodPut)
		authRouter.Handle("/me", requireAuth(http.HandlerFunc(rt.Auth.DeleteMe))).Methods(http.MethodDelete)
		authRouter.Handle("/sessions", requireAuth(http.HandlerFunc(rt.Auth.Sessions))).Methods(http.MethodGet, http.MethodOptions)
		authRouter.Handle("/password", requireAuth(http.HandlerFunc(rt.Auth.ChangePassword))).Methods(http.MethodPost, http.MethodOptions)
	}

	if rt.Movies != nil {
		r.HandleFunc("/api/movies", rt.Movies.List).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/trending", rt.Movies.Trending).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/{id}", rt.Movies.Details).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/{id}/credits", rt.Movies.Credits).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/{id}/reviews", rt.Movies.Reviews).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/{id}/videos", rt.Movies.Videos).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/{id}/trailers", rt.Movies.Trailers).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/movies/{id}/bundle", rt.Movies.Bundle).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/search/videos", rt.Movies.SearchVideos).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/api/searches/top", rt.Movies.TopSearches).Methods(http.MethodGet, http.MethodOptions)
	}

	if rt.Favorites != nil {
		// Reads answer anonymous callers with an empty list or false.
		fav := r.PathPrefix("/api/favorites").Subrouter()
		fav.Handle("", optionalAuth(http.HandlerFunc(rt.Favorites.List))).Methods(http.MethodGet, http.MethodOptions)
		fav.Handle("/{movieId}", optionalAuth(http.HandlerFunc(rt.Favorites.Status))).Methods(http.MethodGet, http.MethodOptions)
		fav.Handle("/{movieId}", requireAuth(http.HandlerFunc(rt.Favorites.Add))).Methods(http.MethodPut)
		fav.Handle("/{movieId}", requireAuth(http.HandlerFunc(rt.Favorites.Remove))).Methods(http.MethodDelete)
		fav.Handle("/{movieId}/toggle", requireAuth(http.HandlerFunc(rt.Favorites.Toggle))).Methods(http.MethodPost, http.MethodOptions)
	}

	if rt.Jobs != nil {
		jobs := r.PathPrefix("/api/jobs").Subrouter()
		jobs.Use(requireAuth, requireAccount(rt.JobsAccountID))
		jobs.HandleFunc("", rt.Jobs.List).Methods(http.MethodGet, http.MethodOptions)
		jobs.HandleFunc("/{name}/run", rt.Jobs.Run).Methods(http.MethodPost, http.MethodOptions)
	}
}

// requireAccount lets through only the given account. An empty id locks the
// routes for everyone.
func requireAccount(accountID string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if accountID == "" || auth.GetAccountID(r) != accountID {
				jsonError(w, "jobs are restricted to the admin account", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
