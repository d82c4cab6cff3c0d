// Package fixtures creates primary and secondary store files with the schema the
// API reads. It backs cmd/fixtures and the integration tests; the API itself never writes.
package fixtures

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// MoviesSchema is the primary store DDL. genres and productionCompanies hold JSON text.
const MoviesSchema = `
    CREATE TABLE IF NOT EXISTS movies (
        movieId             INTEGER PRIMARY KEY,
        imdbId              TEXT,
        title               TEXT NOT NULL,
        overview            TEXT,
        productionCompanies TEXT,
        releaseDate         TEXT,
        budget              INTEGER,
        revenue             INTEGER,
        runtime             INTEGER,
        language            TEXT,
        genres              TEXT,
        status              TEXT
    )
`

// RatingsSchema is the secondary store DDL.
const RatingsSchema = `
    CREATE TABLE IF NOT EXISTS ratings (
        ratingId  INTEGER PRIMARY KEY AUTOINCREMENT,
        userId    INTEGER NOT NULL,
        movieId   INTEGER NOT NULL,
        rating    REAL NOT NULL,
        timestamp INTEGER
    )
`

// Movie is one primary store row. Genres and ProductionCompanies are written
// verbatim so callers can also store malformed text.
type Movie struct {
	ID                  int64           `json:"movieId"`
	ImdbID              string          `json:"imdbId"`
	Title               string          `json:"title"`
	Genres              json.RawMessage `json:"genres"`
	ReleaseDate         string          `json:"releaseDate"`
	Budget              *int64          `json:"budget"`
	Runtime             *int64          `json:"runtime"`
	ProductionCompanies json.RawMessage `json:"productionCompanies"`
	Language            string          `json:"language"`
}

// Rating is one secondary store row.
type Rating struct {
	UserID  int64   `json:"userId"`
	MovieID int64   `json:"movieId"`
	Rating  float64 `json:"rating"`
}

// Set is a complete dataset for both stores.
type Set struct {
	Movies  []Movie  `json:"movies"`
	Ratings []Rating `json:"ratings"`
}

// File names used by Build.
const (
	MoviesFile  = "movies.db"
	RatingsFile = "ratings.db"
)

// Build writes set into dir/movies.db and dir/ratings.db and returns both paths.
func Build(ctx context.Context, dir string, set Set) (string, string, error) {
	moviesPath := filepath.Join(dir, MoviesFile)
	ratingsPath := filepath.Join(dir, RatingsFile)

	// The two stores are separate files, so they can be written concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return WriteMovies(gctx, moviesPath, set.Movies) })
	g.Go(func() error { return WriteRatings(gctx, ratingsPath, set.Ratings) })
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return moviesPath, ratingsPath, nil
}

// WriteMovies creates the movies table at path and inserts rows.
func WriteMovies(ctx context.Context, path string, movies []Movie) error {
	return withTx(ctx, path, MoviesSchema, func(tx *sql.Tx) error {
		const query = `
            INSERT INTO movies (movieId, imdbId, title, genres, releaseDate, budget, runtime, productionCompanies, language)
            VALUES (?,?,?,?,?,?,?,?,?)
        `
		for _, m := range movies {
			_, err := tx.ExecContext(ctx, query,
				m.ID, nullString(m.ImdbID), m.Title,
				rawText(m.Genres), nullString(m.ReleaseDate),
				m.Budget, m.Runtime,
				rawText(m.ProductionCompanies), nullString(m.Language),
			)
			if err != nil {
				return fmt.Errorf("insert movie %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// WriteRatings creates the ratings table at path and inserts rows.
func WriteRatings(ctx context.Context, path string, ratings []Rating) error {
	return withTx(ctx, path, RatingsSchema, func(tx *sql.Tx) error {
		const query = `INSERT INTO ratings (userId, movieId, rating) VALUES (?,?,?)`
		for _, r := range ratings {
			if _, err := tx.ExecContext(ctx, query, r.UserID, r.MovieID, r.Rating); err != nil {
				return fmt.Errorf("insert rating for movie %d: %w", r.MovieID, err)
			}
		}
		return nil
	})
}

// GenresJSON renders names as the stored [{"id":..,"name":..}] text, numbering from 1.
func GenresJSON(names ...string) json.RawMessage {
	type genre struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	genres := make([]genre, 0, len(names))
	for i, name := range names {
		genres = append(genres, genre{ID: i + 1, Name: name})
	}
	payload, _ := json.Marshal(genres)
	return payload
}

// CompaniesJSON renders names as stored production-company text.
func CompaniesJSON(names ...string) json.RawMessage {
	if names == nil {
		names = []string{}
	}
	payload, _ := json.Marshal(names)
	return payload
}

func withTx(ctx context.Context, path, schema string, fn func(*sql.Tx) error) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema in %s: %w", path, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func rawText(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
