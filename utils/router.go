package utils

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterOptions configures the base router.
type RouterOptions struct {
	// AllowedOrigins are trusted for CORS in addition to private-network origins.
	AllowedOrigins []string
	// Health adds fields to the /health response.
	Health func() map[string]any
}

func corsMiddleware(extra []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && IsAllowedOrigin(origin, extra...) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter constructs the base mux router with CORS and /health.
func NewRouter(opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware(opts.AllowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		if opts.Health != nil {
			for k, v := range opts.Health() {
				body[k] = v
			}
		}
		body["status"] = "ok"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(body)
	}).Methods(http.MethodGet)
	return r
}
