// Package favorites keeps per-account favorite movies and reconciles the
// client's view of a favorite with the stored state when it is toggled.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cinetrail/models"
)

var (
	ErrNotAuthenticated = errors.New("sign in to manage favorites")
	ErrMovieRequired    = errors.New("movie id is required")
)

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		log:   slog.Default().With("component", "favorites"),
	}
}

// Add stores ref as a favorite of accountID.
func (s *Service) Add(ctx context.Context, accountID string, ref models.MovieRef) (models.Favorite, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return models.Favorite{}, ErrNotAuthenticated
	}
	movieID := strings.TrimSpace(ref.ID)
	if movieID == "" {
		return models.Favorite{}, ErrMovieRequired
	}

	fav, err := s.store.Add(ctx, models.Favorite{
		AccountID: accountID,
		MovieID:   movieID,
		Title:     strings.TrimSpace(ref.Title),
		PosterURL: models.PosterURL(ref.PosterPath),
	})
	if err != nil {
		return models.Favorite{}, fmt.Errorf("add favorite: %w", err)
	}
	return fav, nil
}

// Remove deletes a favorite. Removing a movie that is not a favorite is not
// an error; the bool reports whether anything was deleted.
func (s *Service) Remove(ctx context.Context, accountID, movieID string) (bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return false, ErrNotAuthenticated
	}
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return false, ErrMovieRequired
	}

	removed, err := s.store.Remove(ctx, accountID, movieID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return removed, nil
}

// List returns the account's favorites, newest first. Anonymous callers get
// an empty list.
func (s *Service) List(ctx context.Context, accountID string) ([]models.Favorite, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return []models.Favorite{}, nil
	}
	favs, err := s.store.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	return favs, nil
}

// IsFavorite reports whether the movie is a favorite. Anonymous callers
// always get false.
func (s *Service) IsFavorite(ctx context.Context, accountID, movieID string) (bool, error) {
	accountID = strings.TrimSpace(accountID)
	movieID = strings.TrimSpace(movieID)
	if accountID == "" || movieID == "" {
		return false, nil
	}
	ok, err := s.store.IsFavorite(ctx, accountID, movieID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}

// RemoveAll drops every favorite of an account, used when the account is
// deleted.
func (s *Service) RemoveAll(ctx context.Context, accountID string) (int, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return 0, ErrNotAuthenticated
	}
	n, err := s.store.DeleteForAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("remove favorites: %w", err)
	}
	if n > 0 {
		s.log.Info("removed favorites of deleted account", "accountId", accountID, "count", n)
	}
	return n, nil
}

// Toggle flips the favorite state the caller believes the movie is in.
//
// The stored state is read first. If it disagrees with believed, another
// device already changed it, so the stored state is returned and nothing is
// written. Otherwise the favorite is removed or added and the new state is
// returned. On any error the caller's believed state comes back with the
// error so the client can leave its view unchanged.
func (s *Service) Toggle(ctx context.Context, accountID string, ref models.MovieRef, believed bool) (bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return believed, ErrNotAuthenticated
	}
	movieID := strings.TrimSpace(ref.ID)
	if movieID == "" {
		return believed, ErrMovieRequired
	}

	stored, err := s.store.IsFavorite(ctx, accountID, movieID)
	if err != nil {
		return believed, fmt.Errorf("check favorite: %w", err)
	}
	if stored != believed {
		s.log.Debug("favorite state reconciled", "accountId", accountID, "movieId", movieID, "stored", stored)
		return stored, nil
	}

	if stored {
		if _, err := s.Remove(ctx, accountID, movieID); err != nil {
			return believed, err
		}
		return false, nil
	}
	if _, err := s.Add(ctx, accountID, ref); err != nil {
		return believed, err
	}
	return true, nil
}
