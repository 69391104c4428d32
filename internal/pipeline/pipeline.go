// Package pipeline ties the harvest stages together: JSON file
// interchange between the stage binaries and the combined
// crawl-clean-load run used by the server.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/internal/clean"
	"github.com/gradstats/gradharvest/internal/config"
	"github.com/gradstats/gradharvest/internal/harvest"
	"github.com/gradstats/gradharvest/internal/load"
	"github.com/gradstats/gradharvest/pkg/record"
)

// WriteRaw saves scraped entries as an indented JSON array and verifies
// the written file reads back with the same count.
func WriteRaw(path string, entries []record.Raw) error {
	if err := writeJSON(path, entries); err != nil {
		return err
	}
	reread, err := ReadRaw(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	if len(reread) != len(entries) {
		return fmt.Errorf("verifying %s: wrote %d entries, read back %d", path, len(entries), len(reread))
	}
	log.Info().Str("file", path).Int("entries", len(entries)).Msg("Raw data saved and verified")
	return nil
}

// ReadRaw loads a raw entry file written by WriteRaw.
func ReadRaw(path string) ([]record.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []record.Raw
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// WriteClean saves canonical records, verifying the count the same way
// as WriteRaw.
func WriteClean(path string, records []record.Canonical) error {
	if err := writeJSON(path, records); err != nil {
		return err
	}
	reread, err := ReadClean(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	if len(reread) != len(records) {
		return fmt.Errorf("verifying %s: wrote %d records, read back %d", path, len(records), len(reread))
	}
	log.Info().Str("file", path).Int("records", len(records)).Msg("Cleaned data saved and verified")
	return nil
}

// ReadClean loads a canonical record file written by WriteClean.
func ReadClean(path string) ([]record.Canonical, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var records []record.Canonical
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Pull runs crawl, clean, and load in one pass against the given pool
// and returns the number of rows inserted.
func Pull(ctx context.Context, settings *config.Settings, db *load.DB) (int, error) {
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
	if err != nil {
		return 0, fmt.Errorf("crawling: %w", err)
	}

	records := clean.New().Clean(result.Entries)

	inserted, err := load.NewLoader(db.Pool).Load(ctx, records)
	if err != nil {
		return inserted, fmt.Errorf("loading: %w", err)
	}

	log.Info().
		Str("session_id", result.SessionID).
		Int("pages", result.PagesScraped).
		Int("records", len(records)).
		Int("inserted", inserted).
		Bool("target_reached", result.TargetReached).
		Msg("Pull complete")
	return inserted, nil
}
