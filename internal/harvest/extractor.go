package harvest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/gradstats/gradharvest/pkg/record"
)

// rowSelectors are tried in order; the first selector that matches any
// elements wins and the rest are never consulted.
var rowSelectors = []string{
	"table.results tbody tr",
	"table tbody tr",
	".result-row",
	".survey-result",
	"[class*='result']",
	".card",
	"article",
}

// fallbackClassPattern catches generically-named listing containers when
// none of the structural selectors hit.
var fallbackClassPattern = regexp.MustCompile(`(?i)(result|entry|row|item)`)

// fieldSelectors map raw record keys to their alternate in-row
// selectors. Each field is matched independently; a miss leaves the key
// unset.
var fieldSelectors = []struct {
	key      string
	selector string
}{
	{"institution", ".institution, .school, [class*='school'], [class*='institution']"},
	{"program", ".program, .major, [class*='program'], [class*='major']"},
	{"decision", ".decision, .status, [class*='decision'], [class*='status']"},
	{"date_added", ".date, [class*='date'], time"},
	{"details", ".details, .extra, [class*='detail']"},
	{"comments", ".comments, .notes, [class*='comment'], [class*='note']"},
}

var (
	queryPagePattern = regexp.MustCompile(`[?&]page=\d+`)
	pathPagePattern  = regexp.MustCompile(`/page/\d+`)
)

// ExtractEntries parses one listing page and returns a raw record per
// admission entry found. Listing markup varies, so row discovery walks
// an ordered selector chain before falling back to class-name
// heuristics. Rows that yield no field values at all are discarded.
func ExtractEntries(pageHTML string) []record.Raw {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		log.Warn().Err(err).Msg("Unparseable page HTML")
		return nil
	}

	var rows *goquery.Selection
	for _, selector := range rowSelectors {
		if found := doc.Find(selector); found.Length() > 0 {
			log.Debug().Str("selector", selector).Int("rows", found.Length()).Msg("Matched listing rows")
			rows = found
			break
		}
	}
	if rows == nil {
		rows = doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			return fallbackClassPattern.MatchString(class)
		})
	}

	var entries []record.Raw
	rows.Each(func(_ int, row *goquery.Selection) {
		if entry, ok := parseRow(row); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

// parseRow extracts the field values of a single listing row. The
// row's outer HTML is always retained so downstream cleaning can
// re-mine fields the selectors missed.
func parseRow(row *goquery.Selection) (record.Raw, bool) {
	entry := record.NewRaw()

	for _, field := range fieldSelectors {
		if elem := row.Find(field.selector).First(); elem.Length() > 0 {
			if text := strings.TrimSpace(elem.Text()); text != "" {
				entry.Set(field.key, text)
			}
		}
	}

	// Nothing field-shaped in this row; keep its full text so the
	// record still carries whatever the page had.
	if entry.Empty() {
		if text := rowText(row); text != "" {
			entry.Set("raw_content", text)
		}
	}

	if entry.Empty() {
		return record.Raw{}, false
	}

	if outer, err := goquery.OuterHtml(row); err == nil {
		entry.RawHTML = outer
	}
	return entry, true
}

// rowText joins every text fragment under the row with " | ".
func rowText(row *goquery.Selection) string {
	var segments []string
	for _, node := range row.Nodes {
		collectText(node, &segments)
	}
	return strings.Join(segments, " | ")
}

func collectText(node *html.Node, segments *[]string) {
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*segments = append(*segments, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, segments)
	}
}

// NextPageURL determines the URL of the page after currentPage. An
// explicit next link on the page wins; otherwise the pagination hrefs
// reveal whether the site paginates by query parameter or path segment,
// defaulting to the query-parameter scheme.
func NextPageURL(pageHTML, resultsURL string, currentPage int) string {
	nextPage := currentPage + 1

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return fmt.Sprintf("%s?page=%d", resultsURL, nextPage)
	}

	next := doc.Find("a.next, a[rel='next'], .pagination a.next, [class*='next'] a").First()
	if href, ok := next.Attr("href"); ok && href != "" {
		if strings.HasPrefix(href, "http") {
			return href
		}
		if base, err := url.Parse(resultsURL); err == nil {
			if ref, err := url.Parse(href); err == nil {
				return base.ResolveReference(ref).String()
			}
		}
	}

	scheme := ""
	doc.Find(".pagination a, [class*='page'] a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		switch {
		case queryPagePattern.MatchString(href):
			scheme = "query"
		case pathPagePattern.MatchString(href):
			scheme = "path"
		}
		return scheme == ""
	})

	if scheme == "path" {
		return fmt.Sprintf("%s/page/%d", resultsURL, nextPage)
	}
	return fmt.Sprintf("%s?page=%d", resultsURL, nextPage)
}
