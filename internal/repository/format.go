package repository

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Clark-Hu/movies-catalog/internal/domain"
)

// movieRow is the persisted shape as scanned; list queries leave the detail columns zero.
type movieRow struct {
	ID                  int64
	ImdbID              sql.NullString
	Title               string
	Genres              sql.NullString
	ReleaseDate         sql.NullString
	Budget              sql.NullFloat64
	Runtime             sql.NullFloat64
	ProductionCompanies sql.NullString
	Language            sql.NullString
	AverageRating       sql.NullFloat64
}

func toMovieListItem(row movieRow, budget budgetFormatter) (domain.MovieListItem, error) {
	genres, err := decodeGenres(row)
	if err != nil {
		return domain.MovieListItem{}, err
	}
	releaseDate, err := formatReleaseDate(row.ReleaseDate)
	if err != nil {
		return domain.MovieListItem{}, fmt.Errorf("%w: movie %d releaseDate: %v", ErrCorruptRow, row.ID, err)
	}
	return domain.MovieListItem{
		ID:          row.ID,
		ImdbID:      nullableString(row.ImdbID),
		Title:       row.Title,
		Genres:      genres,
		ReleaseDate: releaseDate,
		Budget:      budget.format(row.Budget),
	}, nil
}

func toMovieDetail(row movieRow, budget budgetFormatter) (*domain.MovieDetail, error) {
	genres, err := decodeGenres(row)
	if err != nil {
		return nil, err
	}
	releaseDate, err := formatReleaseDate(row.ReleaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: movie %d releaseDate: %v", ErrCorruptRow, row.ID, err)
	}
	var companies []string
	if row.ProductionCompanies.Valid {
		if err := json.Unmarshal([]byte(row.ProductionCompanies.String), &companies); err != nil {
			return nil, fmt.Errorf("%w: movie %d productionCompanies: %v", ErrCorruptRow, row.ID, err)
		}
	}

	detail := &domain.MovieDetail{
		ID:                  row.ID,
		ImdbID:              nullableString(row.ImdbID),
		Title:               row.Title,
		Genres:              genres,
		ReleaseDate:         releaseDate,
		Budget:              budget.format(row.Budget),
		ProductionCompanies: companies,
		OriginalLanguage:    nullableString(row.Language),
		AverageRating:       formatAverage(row.AverageRating),
	}
	if row.Runtime.Valid {
		minutes := int64(math.Round(row.Runtime.Float64))
		detail.Runtime = &minutes
	}
	return detail, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func decodeGenres(row movieRow) ([]domain.Genre, error) {
	if !row.Genres.Valid {
		return nil, nil
	}
	var genres []domain.Genre
	if err := json.Unmarshal([]byte(row.Genres.String), &genres); err != nil {
		return nil, fmt.Errorf("%w: movie %d genres: %v", ErrCorruptRow, row.ID, err)
	}
	return genres, nil
}

// releaseDateLayouts are the stored date forms accepted, most common first.
var releaseDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

// formatReleaseDate truncates a stored date or timestamp to YYYY-MM-DD in UTC.
// NULL and empty values stay nil.
func formatReleaseDate(value sql.NullString) (*string, error) {
	raw := strings.TrimSpace(value.String)
	if !value.Valid || raw == "" {
		return nil, nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			date := t.UTC().Format(time.DateOnly)
			return &date, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", raw)
}

func formatAverage(avg sql.NullFloat64) *string {
	if !avg.Valid {
		return nil
	}
	s := fmt.Sprintf("%.2f", avg.Float64)
	return &s
}

// budgetFormatter renders amounts as "$" plus locale digit grouping, e.g. $1,000,000.
type budgetFormatter struct {
	locale language.Tag
}

func newBudgetFormatter(locale language.Tag) budgetFormatter {
	return budgetFormatter{locale: locale}
}

func (f budgetFormatter) format(amount sql.NullFloat64) *string {
	if !amount.Valid {
		return nil
	}
	// message.Printer is not safe for concurrent use.
	p := message.NewPrinter(f.locale)
	var s string
	if amount.Float64 == math.Trunc(amount.Float64) && math.Abs(amount.Float64) < 1<<53 {
		s = "$" + p.Sprintf("%d", int64(amount.Float64))
	} else {
		s = "$" + p.Sprintf("%.2f", amount.Float64)
	}
	return &s
}
