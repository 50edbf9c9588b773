package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"cinetrail/internal/auth"
	"cinetrail/models"
	"cinetrail/services/favorites"
)

type favoritesService interface {
	Add(ctx context.Context, accountID string, ref models.MovieRef) (models.Favorite, error)
	Remove(ctx context.Context, accountID, movieID string) (bool, error)
	List(ctx context.Context, accountID string) ([]models.Favorite, error)
	IsFavorite(ctx context.Context, accountID, movieID string) (bool, error)
	Toggle(ctx context.Context, accountID string, ref models.MovieRef, believed bool) (bool, error)
}

var _ favoritesService = (*favorites.Service)(nil)

type FavoritesHandler struct {
	Service favoritesService
}

func NewFavoritesHandler(s favoritesService) *FavoritesHandler {
	return &FavoritesHandler{Service: s}
}

// FavoriteRequest is the body for add and toggle. Favorite carries the state
// the client currently shows and is ignored by add.
type FavoriteRequest struct {
	Title      string `json:"title"`
	PosterPath string `json:"posterPath"`
	Favorite   bool   `json:"favorite"`
}

func decodeFavoriteRequest(r *http.Request) (FavoriteRequest, error) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	favs, err := h.Service.List(r.Context(), auth.GetAccountID(r))
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

func (h *FavoritesHandler) Status(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Service.IsFavorite(r.Context(), auth.GetAccountID(r), mux.Vars(r)["movieId"])
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": ok})
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFavoriteRequest(r)
	if err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	fav, err := h.Service.Add(r.Context(), auth.GetAccountID(r), models.MovieRef{
		ID:         mux.Vars(r)["movieId"],
		Title:      req.Title,
		PosterPath: req.PosterPath,
	})
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, fav)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Service.Remove(r.Context(), auth.GetAccountID(r), mux.Vars(r)["movieId"])
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// Toggle flips the favorite the client believes is in req.Favorite. Errors
// echo the believed state back so the client can keep its view.
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFavoriteRequest(r)
	if err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	state, err := h.Service.Toggle(r.Context(), auth.GetAccountID(r), models.MovieRef{
		ID:         mux.Vars(r)["movieId"],
		Title:      req.Title,
		PosterPath: req.PosterPath,
	}, req.Favorite)
	if err != nil {
		status := statusFor(err, http.StatusInternalServerError)
		writeJSON(w, status, map[string]any{"error": errorMessage(err, status), "favorite": state})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": state})
}
