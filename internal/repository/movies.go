package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Clark-Hu/movies-catalog/internal/domain"
	"github.com/Clark-Hu/movies-catalog/internal/metrics"
	"github.com/Clark-Hu/movies-catalog/internal/store"
)

// PageSize bounds the rows returned by every list operation.
const PageSize = 50

// MaxPage is the largest page whose row offset still fits in an int.
const MaxPage = math.MaxInt/PageSize + 1

// SortOrder selects the release-date ordering of ByYear.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder maps asc/desc in any case to a SortOrder, defaulting to SortAsc.
func ParseSortOrder(raw string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// keyword returns the SQL ordering keyword; only these two literals ever reach query text.
func (o SortOrder) keyword() string {
	if o == SortDesc {
		return "DESC"
	}
	return "ASC"
}

// MoviesRepository runs read-only movie queries and reshapes rows into response records.
type MoviesRepository struct {
	db     *sql.DB
	budget budgetFormatter
}

const listColumns = `
    movieId,
    imdbId,
    title,
    genres,
    releaseDate,
    budget
`

// ListAll returns one page of all movies ordered by title.
func (r *MoviesRepository) ListAll(ctx context.Context, page int) ([]domain.MovieListItem, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM movies
        ORDER BY title
        LIMIT ? OFFSET ?
    `, listColumns)
	return r.list(ctx, "list_all", query, PageSize, offset(page))
}

// ByYear returns one page of movies released in year (4 digits), ordered by release date.
func (r *MoviesRepository) ByYear(ctx context.Context, year string, page int, order SortOrder) ([]domain.MovieListItem, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM movies
        WHERE strftime('%%Y', releaseDate) = ?
        ORDER BY releaseDate %s
        LIMIT ? OFFSET ?
    `, listColumns, order.keyword())
	return r.list(ctx, "by_year", query, year, PageSize, offset(page))
}

// ByGenre returns one page of movies whose stored genres text contains genre,
// ordered by title. The match is a case-sensitive substring test on the raw
// JSON text, not membership in the decoded list.
func (r *MoviesRepository) ByGenre(ctx context.Context, genre string, page int) ([]domain.MovieListItem, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM movies
        WHERE instr(genres, ?) > 0
        ORDER BY title
        LIMIT ? OFFSET ?
    `, listColumns)
	return r.list(ctx, "by_genre", query, genre, PageSize, offset(page))
}

// GetByID fetches a movie with its average rating. It returns (nil, nil) when no row matches.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (detail *domain.MovieDetail, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("get_by_id", start, err) }()

	query := fmt.Sprintf(`
        SELECT
            m.movieId,
            m.imdbId,
            m.title,
            m.genres,
            m.releaseDate,
            m.budget,
            m.runtime,
            m.productionCompanies,
            m.language,
            (SELECT AVG(r.rating) FROM %s.ratings r WHERE r.movieId = m.movieId) AS averageRating
        FROM movies m
        WHERE m.movieId = ?
    `, store.RatingsAlias)

	var row movieRow
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&row.ID,
		&row.ImdbID,
		&row.Title,
		&row.Genres,
		&row.ReleaseDate,
		&row.Budget,
		&row.Runtime,
		&row.ProductionCompanies,
		&row.Language,
		&row.AverageRating,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movie %q: %w", id, err)
	}

	return toMovieDetail(row, r.budget)
}

func (r *MoviesRepository) list(ctx context.Context, op, query string, args ...any) (items []domain.MovieListItem, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery(op, start, err) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items = make([]domain.MovieListItem, 0, PageSize)
	for rows.Next() {
		var row movieRow
		if err := rows.Scan(&row.ID, &row.ImdbID, &row.Title, &row.Genres, &row.ReleaseDate, &row.Budget); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		item, err := toMovieListItem(row, r.budget)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func offset(page int) int {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	return (page - 1) * PageSize
}
