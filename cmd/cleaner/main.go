// Package main converts the raw scrape output into the canonical
// cleaned record file.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/internal/clean"
	"github.com/gradstats/gradharvest/internal/config"
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

	entries, err := pipeline.ReadRaw(settings.RawFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read raw data")
	}

	records := clean.New().Clean(entries)

	if err := pipeline.WriteClean(settings.CleanFile, records); err != nil {
		log.Fatal().Err(err).Msg("Failed to save cleaned data")
	}

	log.Info().
		Int("records", len(records)).
		Str("file", settings.CleanFile).
		Msg("Cleaning finished")
}
