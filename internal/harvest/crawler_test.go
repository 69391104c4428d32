package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingPage renders a fake survey page with count result rows.
func listingPage(page, count int) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="results"><tbody>`)
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, `<tr><td class="school">School %d-%d</td><td class="decision">Accepted</td></tr>`, page, i)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

const emptyPage = `<html><body><p>No results found.</p></body></html>`

// fakeSite serves a paginated listing where pagesFor decides how many
// rows each page has. robots.txt is served from robotsBody, or 404s
// when empty.
func fakeSite(t *testing.T, robotsBody string, rowsFor func(page int) int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if robotsBody == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(robotsBody))
			return
		}
		pageHits.Add(1)
		page := 1
		if v := r.URL.Query().Get("page"); v != "" {
			page, _ = strconv.Atoi(v)
		}
		if rows := rowsFor(page); rows > 0 {
			w.Write([]byte(listingPage(page, rows)))
			return
		}
		w.Write([]byte(emptyPage))
	}))
	return server, &pageHits
}

func testCrawler(server *httptest.Server, target int) *Crawler {
	config := &CrawlerConfig{
		ResultsURL:     server.URL + "/survey",
		TargetEntries:  target,
		EmptyThreshold: 3,
		MinDelay:       0,
		MaxDelay:       time.Millisecond,
	}
	gate := NewGatekeeper("test-agent")
	fetcher := NewFetcher(testFetcherConfig(1))
	return NewCrawler(config, gate, fetcher)
}

func TestCrawlStopsOnConsecutiveEmptyPages(t *testing.T) {
	server, pageHits := fakeSite(t, "", func(page int) int {
		if page <= 2 {
			return 4
		}
		return 0
	})
	defer server.Close()

	result, err := testCrawler(server, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Entries, 8)
	assert.Equal(t, 2, result.PagesScraped)
	assert.False(t, result.TargetReached)
	assert.NotEmpty(t, result.SessionID)
	// Pages 1-2 with data, then pages 3-5 empty hit the threshold.
	assert.Equal(t, int32(5), pageHits.Load())
}

func TestCrawlStopsAtTarget(t *testing.T) {
	server, _ := fakeSite(t, "", func(page int) int { return 3 })
	defer server.Close()

	result, err := testCrawler(server, 5).Run(context.Background())
	require.NoError(t, err)

	// The page in flight completes before the target check, so the
	// total can overshoot the target by part of a page.
	assert.Len(t, result.Entries, 6)
	assert.Equal(t, 2, result.PagesScraped)
	assert.True(t, result.TargetReached)
}

func TestCrawlStampsSourcePages(t *testing.T) {
	server, _ := fakeSite(t, "", func(page int) int { return 2 })
	defer server.Close()

	result, err := testCrawler(server, 4).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)

	assert.Equal(t, 1, result.Entries[0].SourcePage)
	assert.Equal(t, 1, result.Entries[1].SourcePage)
	assert.Equal(t, 2, result.Entries[2].SourcePage)
	assert.Equal(t, 2, result.Entries[3].SourcePage)
}

func TestCrawlAbortsWhenRobotsDisallows(t *testing.T) {
	server, pageHits := fakeSite(t, "User-agent: *\nDisallow: /\n", func(page int) int { return 5 })
	defer server.Close()

	result, err := testCrawler(server, 10).Run(context.Background())
	assert.ErrorIs(t, err, ErrRobotsDisallowed)
	assert.Nil(t, result)
	assert.Equal(t, int32(0), pageHits.Load(), "no listing request after a robots denial")
}

func TestCrawlProceedsWhenRobotsMissing(t *testing.T) {
	server, _ := fakeSite(t, "", func(page int) int { return 2 })
	defer server.Close()

	result, err := testCrawler(server, 2).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.TargetReached)
}

func TestCrawlCancellation(t *testing.T) {
	server, _ := fakeSite(t, "", func(page int) int { return 1 })
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := testCrawler(server, 100).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Entries)
}

func TestGatekeeperHonorsDisallowRules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	gate := NewGatekeeper("test-agent")
	assert.True(t, gate.CanFetch(context.Background(), server.URL+"/survey"))
	assert.False(t, gate.CanFetch(context.Background(), server.URL+"/private/results"))
}

func TestGatekeeperFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gate := NewGatekeeper("test-agent")
	assert.True(t, gate.CanFetch(context.Background(), server.URL+"/survey"))
}
