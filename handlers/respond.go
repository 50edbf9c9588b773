package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cinetrail/services/accounts"
	authsvc "cinetrail/services/auth"
	"cinetrail/services/favorites"
	"cinetrail/services/metadata"
	"cinetrail/services/searchstats"
	"cinetrail/services/sessions"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Helper for JSON error responses
func jsonError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes. Errors no service
// claims get fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, metadata.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, metadata.ErrNotFound), errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, metadata.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, metadata.ErrInvalidID),
		errors.Is(err, accounts.ErrEmailRequired),
		errors.Is(err, accounts.ErrInvalidEmail),
		errors.Is(err, accounts.ErrPasswordTooShort),
		errors.Is(err, favorites.ErrMovieRequired),
		errors.Is(err, searchstats.ErrEmptyTerm):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, authsvc.ErrNotAuthenticated),
		errors.Is(err, favorites.ErrNotAuthenticated),
		errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, sessions.ErrSessionExpired),
		errors.Is(err, sessions.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return fallback
}

// errorMessage hides internal detail behind a generic message for 5xx responses
// that are not about the metadata provider.
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func respondError(w http.ResponseWriter, err error, fallback int) {
	status := statusFor(err, fallback)
	jsonError(w, errorMessage(err, status), status)
}

func trimAndParseInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
