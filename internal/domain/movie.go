package domain

// Genre is one entry of a movie's stored genre list.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieListItem is the record returned by the list, year and genre endpoints.
type MovieListItem struct {
	ID          int64   `json:"id"`
	ImdbID      *string `json:"imdbId"`
	Title       string  `json:"title"`
	Genres      []Genre `json:"genres"`
	ReleaseDate *string `json:"releaseDate"`
	Budget      *string `json:"budget"`
}

// MovieDetail is the record returned for a single movie. It carries the
// average rating computed from the ratings store.
type MovieDetail struct {
	ID                  int64    `json:"id"`
	ImdbID              *string  `json:"imdbId"`
	Title               string   `json:"title"`
	Genres              []Genre  `json:"genres"`
	ReleaseDate         *string  `json:"releaseDate"`
	Budget              *string  `json:"budget"`
	Runtime             *int64   `json:"runtime"`
	ProductionCompanies []string `json:"production_companies"`
	OriginalLanguage    *string  `json:"original_language"`
	AverageRating       *string  `json:"average_rating"`
}
