// Package main serves the analysis API over the applicants database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/internal/analytics"
	"github.com/gradstats/gradharvest/internal/config"
	"github.com/gradstats/gradharvest/internal/load"
	"github.com/gradstats/gradharvest/internal/pipeline"
	"github.com/gradstats/gradharvest/internal/server"
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

	ctx := context.Background()

	db, err := load.New(ctx, settings.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(settings.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	srv := server.New(
		server.NewBusyState(),
		func(ctx context.Context) (int, error) {
			return pipeline.Pull(ctx, settings, db)
		},
		func(ctx context.Context) (map[string]string, error) {
			return analytics.QueryAll(ctx, db.Pool)
		},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down server")
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	if err := srv.Listen(settings.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
