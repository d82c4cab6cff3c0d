// Command fixtures writes movies.db and ratings.db from a JSON dataset so the
// API can be run locally without the production stores.
//
//	go run ./cmd/fixtures -data testdata/fixtures.json -out db
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/movies-catalog/internal/fixtures"
	"github.com/Clark-Hu/movies-catalog/internal/logging"
)

func main() {
	var (
		data     = flag.String("data", "testdata/fixtures.json", "path to the JSON dataset")
		out      = flag.String("out", "db", "directory receiving movies.db and ratings.db")
		force    = flag.Bool("force", false, "replace existing store files")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := logging.New(logging.Config{Level: *logLevel, Format: "console"})

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("read dataset")
	}

	var set fixtures.Set
	if err := json.Unmarshal(file, &set); err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("parse dataset")
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output directory")
	}
	for _, name := range []string{fixtures.MoviesFile, fixtures.RatingsFile} {
		path := filepath.Join(*out, name)
		if _, err := os.Stat(path); err == nil {
			if !*force {
				logger.Fatal().Str("path", path).Msg("store file exists; pass -force to replace it")
			}
			if err := os.Remove(path); err != nil {
				logger.Fatal().Err(err).Str("path", path).Msg("remove store file")
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal().Err(err).Str("path", path).Msg("stat store file")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	moviesPath, ratingsPath, err := fixtures.Build(ctx, *out, set)
	if err != nil {
		logger.Fatal().Err(err).Msg("write stores")
	}
	logger.Info().
		Int("movies", len(set.Movies)).
		Int("ratings", len(set.Ratings)).
		Str("movies_db", moviesPath).
		Str("ratings_db", ratingsPath).
		Msg("fixtures written")
}
