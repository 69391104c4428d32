package harvest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// Gatekeeper answers whether a path may be crawled under the site's
// robots.txt. Rulesets are fetched once per host and cached for the
// lifetime of the session. Failures to fetch or parse robots.txt fail
// open: the crawl proceeds, with a warning logged.
type Gatekeeper struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewGatekeeper builds a Gatekeeper identifying itself with userAgent.
func NewGatekeeper(userAgent string) *Gatekeeper {
	return &Gatekeeper{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// CanFetch reports whether robots.txt permits fetching urlStr. A nil
// cached ruleset means the host had no usable robots.txt and everything
// is allowed.
func (g *Gatekeeper) CanFetch(ctx context.Context, urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		log.Warn().Err(err).Str("url", urlStr).Msg("Unparseable URL, allowing fetch")
		return true
	}
	base := parsed.Scheme + "://" + parsed.Host

	g.mu.Lock()
	robots, cached := g.robots[base]
	g.mu.Unlock()

	if !cached {
		robots = g.fetch(ctx, base)
		g.mu.Lock()
		g.robots[base] = robots
		g.mu.Unlock()
	}

	if robots == nil {
		return true
	}
	return robots.TestAgent(parsed.Path, g.userAgent)
}

// fetch retrieves and parses the host's robots.txt. Any failure returns
// nil, which callers treat as "no restrictions".
func (g *Gatekeeper) fetch(ctx context.Context, base string) *robotstxt.RobotsData {
	robotsURL := base + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt request failed, allowing crawl")
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt fetch failed, allowing crawl")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("url", robotsURL).Msg("No robots.txt, allowing crawl")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt read failed, allowing crawl")
		return nil
	}

	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt parse failed, allowing crawl")
		return nil
	}

	log.Info().Str("host", base).Msg("Loaded robots.txt rules")
	return robots
}
