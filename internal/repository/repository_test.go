package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/Clark-Hu/movies-catalog/internal/domain"
	"github.com/Clark-Hu/movies-catalog/internal/fixtures"
	"github.com/Clark-Hu/movies-catalog/internal/store"
)

type testEnv struct {
	ctx        context.Context
	store      *store.Store
	repository *Repository
}

func newTestEnv(t testing.TB, set fixtures.Set, opts ...Option) *testEnv {
	t.Helper()

	ctx := context.Background()
	moviesPath, ratingsPath, err := fixtures.Build(ctx, t.TempDir(), set)
	if err != nil {
		t.Fatalf("build fixtures: %v", err)
	}
	st, err := store.New(ctx, store.Options{MoviesPath: moviesPath, RatingsPath: ratingsPath, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	return &testEnv{
		ctx:        ctx,
		store:      st,
		repository: New(st, opts...),
	}
}

func (e *testEnv) cleanup() {
	if e.store != nil {
		e.store.Close()
	}
}

func int64Ptr(v int64) *int64 { return &v }

func numberedMovies(n int) []fixtures.Movie {
	movies := make([]fixtures.Movie, 0, n)
	for i := 1; i <= n; i++ {
		movies = append(movies, fixtures.Movie{
			ID:          int64(i),
			ImdbID:      fmt.Sprintf("tt%07d", i),
			Title:       fmt.Sprintf("Movie %03d", i),
			Genres:      fixtures.GenresJSON("Drama"),
			ReleaseDate: fmt.Sprintf("2001-01-%02d", i%28+1),
		})
	}
	return movies
}

func TestMoviesRepository_ListAllPagination(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: numberedMovies(120)})
	defer env.cleanup()

	tests := []struct {
		page      int
		wantLen   int
		wantFirst string
	}{
		{page: 1, wantLen: 50, wantFirst: "Movie 001"},
		{page: 2, wantLen: 50, wantFirst: "Movie 051"},
		{page: 3, wantLen: 20, wantFirst: "Movie 101"},
		{page: 0, wantLen: 50, wantFirst: "Movie 001"},
		{page: -4, wantLen: 50, wantFirst: "Movie 001"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			items, err := env.repository.Movies.ListAll(env.ctx, tt.page)
			if err != nil {
				t.Fatalf("ListAll: %v", err)
			}
			if len(items) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(items), tt.wantLen)
			}
			if items[0].Title != tt.wantFirst {
				t.Fatalf("first title = %q, want %q", items[0].Title, tt.wantFirst)
			}
			for i := 1; i < len(items); i++ {
				if items[i-1].Title > items[i].Title {
					t.Fatalf("titles out of order at %d: %q > %q", i, items[i-1].Title, items[i].Title)
				}
			}
		})
	}

	beyond, err := env.repository.Movies.ListAll(env.ctx, 4)
	if err != nil {
		t.Fatalf("ListAll beyond end: %v", err)
	}
	if beyond == nil || len(beyond) != 0 {
		t.Fatalf("beyond end = %#v, want empty non-nil slice", beyond)
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		page int
		want int
	}{
		{page: -1, want: 0},
		{page: 1, want: 0},
		{page: 3, want: 100},
		{page: MaxPage, want: (MaxPage - 1) * PageSize},
		{page: math.MaxInt, want: (MaxPage - 1) * PageSize},
	}
	for _, tt := range tests {
		if got := offset(tt.page); got != tt.want {
			t.Errorf("offset(%d) = %d, want %d", tt.page, got, tt.want)
		}
	}
}

func TestMoviesRepository_ListAllHugePage(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: numberedMovies(3)})
	defer env.cleanup()

	items, err := env.repository.Movies.ListAll(env.ctx, math.MaxInt)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("huge page returned %d rows, want none", len(items))
	}
}

func TestMoviesRepository_ListItemShape(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: []fixtures.Movie{
		{
			ID:          7,
			ImdbID:      "tt0000007",
			Title:       "Shaped",
			Genres:      fixtures.GenresJSON("Action", "Comedy"),
			ReleaseDate: "1999-03-31 22:15:00",
			Budget:      int64Ptr(1_000_000),
		},
		{ID: 8, Title: "Sparse"},
	}})
	defer env.cleanup()

	items, err := env.repository.Movies.ListAll(env.ctx, 1)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}

	shaped := items[0]
	if shaped.ID != 7 || shaped.ImdbID == nil || *shaped.ImdbID != "tt0000007" {
		t.Fatalf("unexpected identity: %+v", shaped)
	}
	if len(shaped.Genres) != 2 || shaped.Genres[0].Name != "Action" || shaped.Genres[1].ID != 2 {
		t.Fatalf("genres = %+v", shaped.Genres)
	}
	if shaped.ReleaseDate == nil || *shaped.ReleaseDate != "1999-03-31" {
		t.Fatalf("releaseDate = %v, want 1999-03-31", shaped.ReleaseDate)
	}
	if shaped.Budget == nil || *shaped.Budget != "$1,000,000" {
		t.Fatalf("budget = %v, want $1,000,000", shaped.Budget)
	}

	sparse := items[1]
	if sparse.ImdbID != nil || sparse.ReleaseDate != nil || sparse.Budget != nil || sparse.Genres != nil {
		t.Fatalf("sparse row should carry nulls: %+v", sparse)
	}
	payload, err := json.Marshal(sparse)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"imdbId":null`, `"releaseDate":null`, `"budget":null`, `"genres":null`} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("payload %s missing %s", payload, want)
		}
	}
}

func TestMoviesRepository_ByYear(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: []fixtures.Movie{
		{ID: 1, ImdbID: "tt1", Title: "Late", Genres: fixtures.GenresJSON("Drama"), ReleaseDate: "1988-11-02"},
		{ID: 2, ImdbID: "tt2", Title: "Early", Genres: fixtures.GenresJSON("Drama"), ReleaseDate: "1988-01-15"},
		{ID: 3, ImdbID: "tt3", Title: "Middle", Genres: fixtures.GenresJSON("Drama"), ReleaseDate: "1988-06-30"},
		{ID: 4, ImdbID: "tt4", Title: "Other Year", Genres: fixtures.GenresJSON("Drama"), ReleaseDate: "1989-01-01"},
		{ID: 5, ImdbID: "tt5", Title: "Undated", Genres: fixtures.GenresJSON("Drama")},
	}})
	defer env.cleanup()

	asc, err := env.repository.Movies.ByYear(env.ctx, "1988", 1, SortAsc)
	if err != nil {
		t.Fatalf("ByYear asc: %v", err)
	}
	assertTitles(t, asc, "Early", "Middle", "Late")
	for _, item := range asc {
		if item.ReleaseDate == nil || !strings.HasPrefix(*item.ReleaseDate, "1988") {
			t.Fatalf("item %q has releaseDate %v outside 1988", item.Title, item.ReleaseDate)
		}
	}

	desc, err := env.repository.Movies.ByYear(env.ctx, "1988", 1, SortDesc)
	if err != nil {
		t.Fatalf("ByYear desc: %v", err)
	}
	assertTitles(t, desc, "Late", "Middle", "Early")

	none, err := env.repository.Movies.ByYear(env.ctx, "2050", 1, SortAsc)
	if err != nil {
		t.Fatalf("ByYear empty: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no movies for 2050, got %d", len(none))
	}
}

func TestMoviesRepository_ByGenre(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: []fixtures.Movie{
		{ID: 1, ImdbID: "tt1", Title: "Bravo", Genres: fixtures.GenresJSON("Action", "Thriller")},
		{ID: 2, ImdbID: "tt2", Title: "Alpha", Genres: fixtures.GenresJSON("Action")},
		{ID: 3, ImdbID: "tt3", Title: "Charlie", Genres: fixtures.GenresJSON("Comedy")},
		{ID: 4, ImdbID: "tt4", Title: "Delta"},
	}})
	defer env.cleanup()

	tests := []struct {
		genre string
		want  []string
	}{
		{genre: "Action", want: []string{"Alpha", "Bravo"}},
		{genre: "Act", want: []string{"Alpha", "Bravo"}},
		{genre: "action", want: nil},
		{genre: "Comedy", want: []string{"Charlie"}},
		{genre: "Horror", want: nil},
		{genre: "%", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			items, err := env.repository.Movies.ByGenre(env.ctx, tt.genre, 1)
			if err != nil {
				t.Fatalf("ByGenre: %v", err)
			}
			assertTitles(t, items, tt.want...)
		})
	}
}

func TestMoviesRepository_GetByID(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{
		Movies: []fixtures.Movie{
			{
				ID:                  42,
				ImdbID:              "tt0000042",
				Title:               "Answer",
				Genres:              fixtures.GenresJSON("Science Fiction"),
				ReleaseDate:         "1979-10-12",
				Budget:              int64Ptr(5_000_000),
				Runtime:             int64Ptr(118),
				ProductionCompanies: fixtures.CompaniesJSON("Megadodo", "Infinite Improbability"),
				Language:            "en",
			},
			{ID: 43, ImdbID: "tt0000043", Title: "Unrated", Genres: fixtures.GenresJSON("Drama")},
		},
		Ratings: []fixtures.Rating{
			{UserID: 1, MovieID: 42, Rating: 4},
			{UserID: 2, MovieID: 42, Rating: 3},
			{UserID: 3, MovieID: 42, Rating: 3.5},
		},
	})
	defer env.cleanup()

	detail, err := env.repository.Movies.GetByID(env.ctx, "42")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if detail == nil {
		t.Fatalf("expected movie 42")
	}
	if detail.Title != "Answer" || detail.ImdbID == nil || *detail.ImdbID != "tt0000042" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.AverageRating == nil || *detail.AverageRating != "3.50" {
		t.Fatalf("average = %v, want 3.50", detail.AverageRating)
	}
	if detail.Runtime == nil || *detail.Runtime != 118 {
		t.Fatalf("runtime = %v, want 118", detail.Runtime)
	}
	if detail.OriginalLanguage == nil || *detail.OriginalLanguage != "en" {
		t.Fatalf("language = %v, want en", detail.OriginalLanguage)
	}
	if len(detail.ProductionCompanies) != 2 || detail.ProductionCompanies[1] != "Infinite Improbability" {
		t.Fatalf("companies = %v", detail.ProductionCompanies)
	}
	if detail.Budget == nil || *detail.Budget != "$5,000,000" {
		t.Fatalf("budget = %v, want $5,000,000", detail.Budget)
	}

	unrated, err := env.repository.Movies.GetByID(env.ctx, "43")
	if err != nil {
		t.Fatalf("GetByID unrated: %v", err)
	}
	if unrated == nil || unrated.AverageRating != nil {
		t.Fatalf("unrated movie should have null average: %+v", unrated)
	}

	for _, id := range []string{"999", "nonexistentid", ""} {
		missing, err := env.repository.Movies.GetByID(env.ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%q): %v", id, err)
		}
		if missing != nil {
			t.Fatalf("GetByID(%q) = %+v, want nil", id, missing)
		}
	}
}

func TestMoviesRepository_CorruptRows(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: []fixtures.Movie{
		{ID: 1, ImdbID: "tt1", Title: "Broken", Genres: json.RawMessage(`[{"id":1,"name":"Drama"`)},
	}})
	defer env.cleanup()

	if _, err := env.repository.Movies.ListAll(env.ctx, 1); !errors.Is(err, ErrCorruptRow) {
		t.Fatalf("ListAll err = %v, want ErrCorruptRow", err)
	}
	if _, err := env.repository.Movies.GetByID(env.ctx, "1"); !errors.Is(err, ErrCorruptRow) {
		t.Fatalf("GetByID err = %v, want ErrCorruptRow", err)
	}
}

func TestMoviesRepository_BudgetLocale(t *testing.T) {
	env := newTestEnv(t, fixtures.Set{Movies: []fixtures.Movie{
		{ID: 1, ImdbID: "tt1", Title: "Euro", Genres: fixtures.GenresJSON("Drama"), Budget: int64Ptr(1_000_000)},
	}}, WithLocale(language.German))
	defer env.cleanup()

	items, err := env.repository.Movies.ListAll(env.ctx, 1)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if items[0].Budget == nil || *items[0].Budget != "$1.000.000" {
		t.Fatalf("budget = %v, want $1.000.000", items[0].Budget)
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := map[string]SortOrder{
		"":        SortAsc,
		"asc":     SortAsc,
		"ASC":     SortAsc,
		"desc":    SortDesc,
		"DeSc":    SortDesc,
		" desc ":  SortDesc,
		"sideway": SortAsc,
	}
	for raw, want := range tests {
		if got := ParseSortOrder(raw); got != want {
			t.Fatalf("ParseSortOrder(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestFormatReleaseDate(t *testing.T) {
	tests := []struct {
		name    string
		value   sql.NullString
		want    string
		wantNil bool
		wantErr bool
	}{
		{name: "null", value: sql.NullString{}, wantNil: true},
		{name: "empty", value: sql.NullString{Valid: true}, wantNil: true},
		{name: "date", value: sql.NullString{String: "2010-07-16", Valid: true}, want: "2010-07-16"},
		{name: "datetime", value: sql.NullString{String: "2010-07-16 23:59:59", Valid: true}, want: "2010-07-16"},
		{name: "iso", value: sql.NullString{String: "2010-07-16T08:00:00Z", Valid: true}, want: "2010-07-16"},
		{name: "offset", value: sql.NullString{String: "2010-07-16T20:00:00-05:00", Valid: true}, want: "2010-07-17"},
		{name: "garbage", value: sql.NullString{String: "July 2010", Valid: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatReleaseDate(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("formatReleaseDate: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("got %q, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestBudgetFormatter(t *testing.T) {
	f := newBudgetFormatter(language.AmericanEnglish)
	tests := []struct {
		amount sql.NullFloat64
		want   string
	}{
		{sql.NullFloat64{Float64: 0, Valid: true}, "$0"},
		{sql.NullFloat64{Float64: 999, Valid: true}, "$999"},
		{sql.NullFloat64{Float64: 1000, Valid: true}, "$1,000"},
		{sql.NullFloat64{Float64: 237_000_000, Valid: true}, "$237,000,000"},
		{sql.NullFloat64{Float64: 1234.5, Valid: true}, "$1,234.50"},
	}
	for _, tt := range tests {
		got := f.format(tt.amount)
		if got == nil || *got != tt.want {
			t.Fatalf("format(%v) = %v, want %s", tt.amount.Float64, got, tt.want)
		}
	}
	if got := f.format(sql.NullFloat64{}); got != nil {
		t.Fatalf("format(NULL) = %q, want nil", *got)
	}
}

func TestFormatAverage(t *testing.T) {
	if got := formatAverage(sql.NullFloat64{}); got != nil {
		t.Fatalf("formatAverage(NULL) = %q, want nil", *got)
	}
	got := formatAverage(sql.NullFloat64{Float64: 10.0 / 3.0, Valid: true})
	if got == nil || *got != "3.33" {
		t.Fatalf("formatAverage = %v, want 3.33", got)
	}
}

func assertTitles(t *testing.T, items []domain.MovieListItem, want ...string) {
	t.Helper()
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d (%v)", len(items), len(want), want)
	}
	for i, item := range items {
		if item.Title != want[i] {
			t.Fatalf("item %d title = %q, want %q", i, item.Title, want[i])
		}
	}
}
