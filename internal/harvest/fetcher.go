package harvest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// retryableStatuses are the only HTTP statuses worth another attempt.
// Everything else non-2xx is a terminal answer from the server.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// FetcherConfig tunes retry behavior for page fetches.
type FetcherConfig struct {
	UserAgent         string        `json:"user_agent"`
	Timeout           time.Duration `json:"timeout"`
	MaxRetries        int           `json:"max_retries"`
	BaseDelay         time.Duration `json:"base_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
}

// DefaultFetcherConfig returns production fetch settings.
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Timeout:           30 * time.Second,
		MaxRetries:        5,
		BaseDelay:         time.Second,
		BackoffMultiplier: 2,
	}
}

// Fetcher retrieves listing pages with bounded exponential retries.
type Fetcher struct {
	client *retryablehttp.Client
	config *FetcherConfig
}

// NewFetcher builds a Fetcher from config, falling back to defaults
// when config is nil.
func NewFetcher(config *FetcherConfig) *Fetcher {
	if config == nil {
		config = DefaultFetcherConfig()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = config.Timeout
	client.RetryMax = config.MaxRetries
	client.Logger = nil

	// Retry transport errors and the transient server statuses only;
	// any other non-2xx answer is final.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return retryableStatuses[resp.StatusCode], nil
	}

	base, mult := config.BaseDelay, config.BackoffMultiplier
	client.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return time.Duration(float64(base) * math.Pow(mult, float64(attemptNum)))
	}

	return &Fetcher{client: client, config: config}
}

// Fetch retrieves url and returns the response body. Retries are
// exhausted internally; the returned error covers both transport
// failures and terminal HTTP statuses.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	f.setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	log.Debug().Str("url", url).Int("bytes", len(body)).Msg("Fetched page")
	return string(body), nil
}

// setBrowserHeaders makes the request indistinguishable from a normal
// browser visit. Accept-Encoding is pinned to identity so the body
// needs no decompression pass.
func (f *Fetcher) setBrowserHeaders(req *retryablehttp.Request) {
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
