package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/Clark-Hu/movies-catalog/internal/config"
	httpserver "github.com/Clark-Hu/movies-catalog/internal/http"
	"github.com/Clark-Hu/movies-catalog/internal/logging"
	"github.com/Clark-Hu/movies-catalog/internal/repository"
	"github.com/Clark-Hu/movies-catalog/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Config{Level: "info", Format: "json"})
		bootLogger.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// run opens the stores and serves until ctx is cancelled. The store is closed
// before run returns, so callers may exit immediately on error.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, store.Options{
		MoviesPath:  cfg.Store.MovieDBPath,
		RatingsPath: cfg.Store.RatingsDBPath,
		Logger:      logger,
	})
	if err != nil {
		logger.Error().Err(err).
			Str("movies", cfg.Store.MovieDBPath).
			Str("ratings", cfg.Store.RatingsDBPath).
			Msg("connect store")
		return err
	}
	defer st.Close()

	// Validated by config.Load.
	locale := language.MustParse(cfg.API.BudgetLocale)
	repo := repository.New(st, repository.WithLocale(locale))
	return httpserver.New(cfg, st, repo, logger).Start(ctx)
}
