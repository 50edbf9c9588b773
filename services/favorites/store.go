package favorites

import (
	"context"

	"cinetrail/internal/database"
	"cinetrail/models"
)

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=favorites

// Store persists favorites per account.
type Store interface {
	// Add saves fav. Adding an existing (account, movie) pair returns the
	// stored favorite unchanged.
	Add(ctx context.Context, fav models.Favorite) (models.Favorite, error)
	// Remove reports whether the pair existed.
	Remove(ctx context.Context, accountID, movieID string) (bool, error)
	// List returns favorites newest first.
	List(ctx context.Context, accountID string) ([]models.Favorite, error)
	IsFavorite(ctx context.Context, accountID, movieID string) (bool, error)
	// DeleteForAccount drops every favorite of the account.
	DeleteForAccount(ctx context.Context, accountID string) (int, error)
}

type sqliteStore struct {
	repo *database.FavoriteRepository
}

// NewSQLiteStore adapts the database favorites repository to Store.
func NewSQLiteStore(repo *database.FavoriteRepository) Store {
	return &sqliteStore{repo: repo}
}

func (s *sqliteStore) Add(ctx context.Context, fav models.Favorite) (models.Favorite, error) {
	stored, _, err := s.repo.Add(ctx, fav)
	if err != nil {
		return models.Favorite{}, err
	}
	return *stored, nil
}

func (s *sqliteStore) Remove(ctx context.Context, accountID, movieID string) (bool, error) {
	return s.repo.Remove(ctx, accountID, movieID)
}

func (s *sqliteStore) List(ctx context.Context, accountID string) ([]models.Favorite, error) {
	return s.repo.List(ctx, accountID)
}

func (s *sqliteStore) IsFavorite(ctx context.Context, accountID, movieID string) (bool, error) {
	fav, err := s.repo.Get(ctx, accountID, movieID)
	if err != nil {
		return false, err
	}
	return fav != nil, nil
}

func (s *sqliteStore) DeleteForAccount(ctx context.Context, accountID string) (int, error) {
	n, err := s.repo.DeleteForAccount(ctx, accountID)
	return int(n), err
}
