package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cinetrail/models"
)

type SearchRepository struct {
	db *sql.DB
}

func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

const searchColumns = `term_key, search_term, movie_id, title, poster_url, count, created_at, updated_at`

func scanSearchCount(row interface{ Scan(...any) error }) (*models.SearchCount, error) {
	var sc models.SearchCount
	err := row.Scan(&sc.TermKey, &sc.Term, &sc.MovieID, &sc.Title, &sc.PosterURL, &sc.Count, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sc.CreatedAt = sc.CreatedAt.UTC()
	sc.UpdatedAt = sc.UpdatedAt.UTC()
	return &sc, nil
}

// Increment bumps the counter for sc.TermKey, inserting a row with count 1
// the first time the key is seen. The movie recorded on first insert is kept.
func (r *SearchRepository) Increment(ctx context.Context, sc models.SearchCount, at time.Time) (*models.SearchCount, error) {
	at = at.UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO search_counts (term_key, search_term, movie_id, title, poster_url, count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (term_key) DO UPDATE SET
			count = search_counts.count + 1,
			updated_at = excluded.updated_at`,
		sc.TermKey, sc.Term, sc.MovieID, sc.Title, sc.PosterURL, at, at)
	if err != nil {
		return nil, fmt.Errorf("upsert search count: %w", err)
	}
	stored, err := r.Get(ctx, sc.TermKey)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("search count %q missing after upsert", sc.TermKey)
	}
	return stored, nil
}

// Get returns the counter for a normalized key, or nil when it was never recorded.
func (r *SearchRepository) Get(ctx context.Context, termKey string) (*models.SearchCount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+searchColumns+` FROM search_counts WHERE term_key = ?`, termKey)
	sc, err := scanSearchCount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get search count: %w", err)
	}
	return sc, nil
}

// Top returns the most searched terms, ties broken by most recent activity.
func (r *SearchRepository) Top(ctx context.Context, limit int) ([]models.SearchCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+searchColumns+` FROM search_counts
		ORDER BY count DESC, updated_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top search counts: %w", err)
	}
	defer rows.Close()

	top := []models.SearchCount{}
	for rows.Next() {
		sc, err := scanSearchCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search count: %w", err)
		}
		top = append(top, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top search counts: %w", err)
	}
	return top, nil
}
