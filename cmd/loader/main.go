// Package main loads the cleaned record file into PostgreSQL.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/internal/config"
	"github.com/gradstats/gradharvest/internal/load"
	"github.com/gradstats/gradharvest/internal/pipeline"
	"github.com/gradstats/gradharvest/pkg/logging"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	if err := logging.SetupLogger(&logging.LogConfig{
		Level:      settings.LogLevel,
		Format:     settings.LogFormat,
		OutputFile: settings.LogFile,
		Console:    true,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := pipeline.ReadClean(settings.CleanFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read cleaned data")
	}

	db, err := load.New(ctx, settings.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(settings.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	inserted, err := load.NewLoader(db.Pool).Load(ctx, records)
	if err != nil {
		log.Fatal().Err(err).Msg("Load failed")
	}

	log.Info().
		Int("inserted", inserted).
		Int("skipped", len(records)-inserted).
		Msg("Load finished")
}
