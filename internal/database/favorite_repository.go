package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cinetrail/models"
)

type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

const favoriteColumns = `id, account_id, movie_id, title, poster_url, created_at`

func scanFavorite(row interface{ Scan(...any) error }) (*models.Favorite, error) {
	var f models.Favorite
	if err := row.Scan(&f.ID, &f.AccountID, &f.MovieID, &f.Title, &f.PosterURL, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

// Add inserts a favorite. When the (account, movie) pair already exists the
// stored row is returned unchanged and created is false.
func (r *FavoriteRepository) Add(ctx context.Context, fav models.Favorite) (stored *models.Favorite, created bool, err error) {
	if fav.ID == "" {
		fav.ID = uuid.NewString()
	}
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now()
	}
	fav.CreatedAt = fav.CreatedAt.UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (`+favoriteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, movie_id) DO NOTHING`,
		fav.ID, fav.AccountID, fav.MovieID, fav.Title, fav.PosterURL, fav.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert favorite: %w", err)
	}
	if n == 1 {
		return &fav, true, nil
	}

	existing, err := r.Get(ctx, fav.AccountID, fav.MovieID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("favorite %s/%s vanished after conflict", fav.AccountID, fav.MovieID)
	}
	return existing, false, nil
}

// Get returns the favorite for the pair, or nil when there is none.
func (r *FavoriteRepository) Get(ctx context.Context, accountID, movieID string) (*models.Favorite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE account_id = ? AND movie_id = ?`,
		accountID, movieID)
	fav, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get favorite: %w", err)
	}
	return fav, nil
}

// Remove deletes the pair and reports whether a row existed.
func (r *FavoriteRepository) Remove(ctx context.Context, accountID, movieID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE account_id = ? AND movie_id = ?`, accountID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return n > 0, nil
}

// List returns an account's favorites, newest first.
func (r *FavoriteRepository) List(ctx context.Context, accountID string) ([]models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE account_id = ? ORDER BY created_at DESC, rowid DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, *fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, nil
}

// DeleteForAccount drops every favorite of an account.
func (r *FavoriteRepository) DeleteForAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("delete account favorites: %w", err)
	}
	return res.RowsAffected()
}
