package models

import "time"

// Favorite is a movie saved by an account.
type Favorite struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	MovieID   string    `json:"movieId"`
	Title     string    `json:"title"`
	PosterURL string    `json:"posterUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// MovieRef is the subset of a movie needed to store it as a favorite.
type MovieRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PosterPath string `json:"posterPath"`
}

// SearchCount tracks how often a search term was issued and the movie it led to.
type SearchCount struct {
	Term      string    `json:"searchTerm"`
	TermKey   string    `json:"-"`
	MovieID   int64     `json:"movieId"`
	Title     string    `json:"title"`
	PosterURL string    `json:"posterUrl"`
	Count     int64     `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
