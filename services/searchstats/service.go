// Package searchstats counts which search terms users issue and which movie
// each term led to.
package searchstats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"

	"cinetrail/models"
)

var (
	ErrEmptyTerm    = errors.New("search term is empty")
	ErrMovieMissing = errors.New("search hit has no movie")
)

const (
	DefaultTopLimit = 5
	MaxTopLimit     = 50
)

// Repository is the storage the counters live in.
type Repository interface {
	Increment(ctx context.Context, sc models.SearchCount, at time.Time) (*models.SearchCount, error)
	Top(ctx context.Context, limit int) ([]models.SearchCount, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NormalizeTerm builds the counter key for a term: trimmed, transliterated
// to ASCII, lowercased, inner whitespace collapsed to single spaces.
func NormalizeTerm(term string) string {
	term = unidecode.Unidecode(strings.TrimSpace(term))
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// Record counts one search for term that resolved to movie.
func (s *Service) Record(ctx context.Context, term string, movie models.Movie) (*models.SearchCount, error) {
	key := NormalizeTerm(term)
	if key == "" {
		return nil, ErrEmptyTerm
	}
	if movie.ID <= 0 {
		return nil, ErrMovieMissing
	}

	sc, err := s.repo.Increment(ctx, models.SearchCount{
		Term:      strings.TrimSpace(term),
		TermKey:   key,
		MovieID:   movie.ID,
		Title:     movie.Title,
		PosterURL: models.PosterURL(movie.PosterPath),
	}, s.now())
	if err != nil {
		return nil, fmt.Errorf("record search %q: %w", key, err)
	}
	return sc, nil
}

// Top returns the most frequent terms. limit <= 0 selects DefaultTopLimit.
func (s *Service) Top(ctx context.Context, limit int) ([]models.SearchCount, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	top, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top searches: %w", err)
	}
	return top, nil
}
