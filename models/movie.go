package models

import "strings"

// TMDBPosterBaseURL is the image prefix used for poster URLs persisted with
// favorites and search counters.
const TMDBPosterBaseURL = "https://image.tmdb.org/t/p/w500"

// PosterURL builds a w500 poster URL from a TMDB poster path.
func PosterURL(posterPath string) string {
	posterPath = strings.TrimSpace(posterPath)
	if posterPath == "" {
		return ""
	}
	if !strings.HasPrefix(posterPath, "/") {
		posterPath = "/" + posterPath
	}
	return TMDBPosterBaseURL + posterPath
}

// Movie is a list entry from discover, search or trending endpoints.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int   `json:"genre_ids"`
	Adult        bool    `json:"adult"`
	Language     string  `json:"original_language"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO6391     string `json:"iso_639_1"`
	Name        string `json:"name"`
}

// MovieDetails is the full record from /movie/{id}.
type MovieDetails struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
	ReleaseDate         string              `json:"release_date"`
	Runtime             int                 `json:"runtime"`
	Status              string              `json:"status"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Popularity          float64             `json:"popularity"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	IMDBID              string              `json:"imdb_id"`
	Homepage            string              `json:"homepage"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
}

// CastMember is one entry of a movie's credits.
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
	CreditID    string `json:"credit_id"`
}

type ReviewAuthor struct {
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	AvatarPath string   `json:"avatar_path"`
	Rating     *float64 `json:"rating"`
}

// Review is a user review attached to a movie.
type Review struct {
	ID            string       `json:"id"`
	Author        string       `json:"author"`
	AuthorDetails ReviewAuthor `json:"author_details"`
	Content       string       `json:"content"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
	URL           string       `json:"url"`
}

// MovieWithVideos is a movie's details together with its classified videos.
type MovieWithVideos struct {
	Movie     *MovieDetails  `json:"movie"`
	Videos    []Video        `json:"videos"`
	Breakdown VideoBreakdown `json:"breakdown"`
}

// MovieVideoSummary annotates a search result with video availability.
type MovieVideoSummary struct {
	Movie
	HasVideos    bool `json:"hasVideos"`
	TrailerCount int  `json:"trailerCount"`
}
