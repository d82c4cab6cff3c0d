package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// RatingsAlias is the schema name the secondary store is attached under.
// Cross-store queries reference the ratings table as ratingsDB.ratings.
const RatingsAlias = "ratingsDB"

// ErrNotConnected is returned when an operation needs a live connection.
var ErrNotConnected = errors.New("store: not connected")

// Options locates the two store files.
type Options struct {
	MoviesPath  string
	RatingsPath string
	Logger      zerolog.Logger
}

// Store owns the single connection to the primary store, with the secondary
// store attached to it.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens the primary store, attaches the ratings store and verifies both schemas.
func New(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger.With().Str("component", "store").Logger()

	for _, path := range []string{opts.MoviesPath, opts.RatingsPath} {
		if err := checkFile(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", opts.MoviesPath)
	if err != nil {
		return nil, fmt.Errorf("open movies store: %w", err)
	}

	// ATTACH is per connection, so the pool must never grow or recycle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping movies store: %w", err)
	}

	if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS "+RatingsAlias, opts.RatingsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("attach ratings store: %w", err)
	}

	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info().
		Str("movies", opts.MoviesPath).
		Str("ratings", opts.RatingsPath).
		Msg("connected to store")

	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection. Errors are logged, never returned.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.logger.Info().Msg("closing store")
	if err := s.db.Close(); err != nil {
		s.logger.Error().Err(err).Msg("close store")
	}
}

// HealthCheck verifies the connection is still usable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotConnected
	}
	return s.db.PingContext(ctx)
}

// DB exposes the handle for repositories.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("store file %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("store file %q is a directory", path)
	}
	return nil
}

// verifySchema fails when either store lacks its table or is not a database at all.
func verifySchema(ctx context.Context, db *sql.DB) error {
	probes := []struct {
		name  string
		query string
	}{
		{"movies", "SELECT COUNT(*) FROM main.sqlite_master WHERE type = 'table' AND name = 'movies'"},
		{RatingsAlias + ".ratings", "SELECT COUNT(*) FROM " + RatingsAlias + ".sqlite_master WHERE type = 'table' AND name = 'ratings'"},
	}
	for _, p := range probes {
		var n int
		if err := db.QueryRowContext(ctx, p.query).Scan(&n); err != nil {
			return fmt.Errorf("inspect %s: %w", p.name, err)
		}
		if n == 0 {
			return fmt.Errorf("table %s not found", p.name)
		}
	}
	return nil
}
