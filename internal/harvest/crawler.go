// Package harvest crawls the paginated admissions listing: a robots.txt
// gatekeeper, a retrying fetcher, a selector-chain page extractor, and
// the sequential crawl loop that drives them.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/pkg/ratelimit"
	"github.com/gradstats/gradharvest/pkg/record"
)

// ErrRobotsDisallowed means robots.txt forbids crawling the listing and
// no request was made.
var ErrRobotsDisallowed = errors.New("crawling disallowed by robots.txt")

// CrawlerConfig tunes the pagination loop.
type CrawlerConfig struct {
	ResultsURL     string        `json:"results_url"`
	TargetEntries  int           `json:"target_entries"`
	EmptyThreshold int           `json:"empty_threshold"`
	MinDelay       time.Duration `json:"min_delay"`
	MaxDelay       time.Duration `json:"max_delay"`
}

// DefaultCrawlerConfig returns production crawl settings.
func DefaultCrawlerConfig() *CrawlerConfig {
	return &CrawlerConfig{
		ResultsURL:     "https://www.thegradcafe.com/survey",
		TargetEntries:  45000,
		EmptyThreshold: 3,
		MinDelay:       time.Second,
		MaxDelay:       3 * time.Second,
	}
}

// CrawlResult summarizes one crawl session.
type CrawlResult struct {
	Entries       []record.Raw `json:"entries"`
	PagesScraped  int          `json:"pages_scraped"`
	TargetReached bool         `json:"target_reached"`
	SessionID     string       `json:"session_id"`
}

// Crawler walks the paginated listing sequentially, collecting raw
// records until the target is reached or the source is exhausted.
type Crawler struct {
	config  *CrawlerConfig
	gate    *Gatekeeper
	fetcher *Fetcher
	pacer   *ratelimit.Pacer
}

// NewCrawler wires a crawler from its collaborators, applying defaults
// when config is nil.
func NewCrawler(config *CrawlerConfig, gate *Gatekeeper, fetcher *Fetcher) *Crawler {
	if config == nil {
		config = DefaultCrawlerConfig()
	}
	return &Crawler{
		config:  config,
		gate:    gate,
		fetcher: fetcher,
		pacer:   ratelimit.NewPacer(config.MinDelay, config.MaxDelay),
	}
}

// Run executes the crawl. It stops when the entry target is met, when
// too many consecutive pages fail or come back empty, or when ctx is
// cancelled; cancellation is observed at iteration boundaries and
// returns whatever was collected alongside the context error.
//
// Failure and empty-page streaks are tracked independently; either one
// reaching the threshold ends the crawl, and both reset only on a page
// that yields entries.
func (c *Crawler) Run(ctx context.Context) (*CrawlResult, error) {
	result := &CrawlResult{SessionID: uuid.New().String()}
	logger := log.With().Str("session_id", result.SessionID).Logger()

	if !c.gate.CanFetch(ctx, c.config.ResultsURL) {
		logger.Error().Str("url", c.config.ResultsURL).Msg("Aborting: robots.txt disallows crawl")
		return nil, ErrRobotsDisallowed
	}

	logger.Info().Int("target", c.config.TargetEntries).Str("url", c.config.ResultsURL).Msg("Starting crawl")

	currentPage := 1
	pageURL := c.config.ResultsURL
	consecutiveFailures := 0
	consecutiveEmpty := 0

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("page", currentPage).Msg("Crawl cancelled")
			return result, err
		}

		if len(result.Entries) >= c.config.TargetEntries {
			logger.Info().Int("entries", len(result.Entries)).Msg("Entry target reached")
			result.TargetReached = true
			return result, nil
		}

		logger.Info().
			Int("page", currentPage).
			Int("collected", len(result.Entries)).
			Int("target", c.config.TargetEntries).
			Msg("Fetching page")

		if err := c.pacer.Wait(ctx); err != nil {
			return result, err
		}

		pageHTML, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			c.pacer.RecordError()
			consecutiveFailures++
			logger.Warn().Err(err).Int("page", currentPage).Int("streak", consecutiveFailures).Msg("Page fetch failed")
			if consecutiveFailures >= c.config.EmptyThreshold {
				logger.Error().Msg("Too many consecutive failures, stopping crawl")
				return result, nil
			}
			currentPage++
			pageURL = c.numberedPageURL(currentPage)
			continue
		}

		entries := ExtractEntries(pageHTML)
		if len(entries) == 0 {
			consecutiveEmpty++
			logger.Warn().Int("page", currentPage).Int("streak", consecutiveEmpty).Msg("No entries on page")
			if consecutiveEmpty >= c.config.EmptyThreshold {
				logger.Info().Msg("Consecutive empty pages, source exhausted")
				return result, nil
			}
			currentPage++
			pageURL = c.numberedPageURL(currentPage)
			continue
		}

		consecutiveFailures = 0
		consecutiveEmpty = 0

		for i := range entries {
			entries[i].SourcePage = currentPage
		}
		result.Entries = append(result.Entries, entries...)
		result.PagesScraped++

		logger.Info().
			Int("page", currentPage).
			Int("page_entries", len(entries)).
			Int("total", len(result.Entries)).
			Msg("Page extracted")

		nextURL := NextPageURL(pageHTML, c.config.ResultsURL, currentPage)
		currentPage++
		pageURL = nextURL
	}
}

// numberedPageURL builds the listing URL for a page when no markup is
// available to derive it from.
func (c *Crawler) numberedPageURL(page int) string {
	if page == 1 {
		return c.config.ResultsURL
	}
	return fmt.Sprintf("%s?page=%d", c.config.ResultsURL, page)
}
