// Package main runs the admission listing crawl and saves the raw
// entries to the interchange file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/internal/config"
	"github.com/gradstats/gradharvest/internal/harvest"
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

	crawler := harvest.NewCrawler(
		&harvest.CrawlerConfig{
			ResultsURL:     settings.ResultsURL(),
			TargetEntries:  settings.TargetEntries,
			EmptyThreshold: settings.EmptyThreshold,
			MinDelay:       settings.MinDelay,
			MaxDelay:       settings.MaxDelay,
		},
		harvest.NewGatekeeper(settings.UserAgent),
		harvest.NewFetcher(&harvest.FetcherConfig{
			UserAgent:         settings.UserAgent,
			Timeout:           settings.FetchTimeout,
			MaxRetries:        settings.MaxRetries,
			BaseDelay:         settings.MinDelay,
			BackoffMultiplier: settings.BackoffMultiplier,
		}),
	)

	result, err := crawler.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Crawl failed")
	}
	if result == nil {
		os.Exit(1)
	}

	if err := pipeline.WriteRaw(settings.RawFile, result.Entries); err != nil {
		log.Fatal().Err(err).Msg("Failed to save raw data")
	}

	log.Info().
		Str("session_id", result.SessionID).
		Int("entries", len(result.Entries)).
		Int("pages", result.PagesScraped).
		Bool("target_reached", result.TargetReached).
		Str("file", settings.RawFile).
		Msg("Scrape finished")
}
