package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablePage = `<html><body>
<table class="results"><tbody>
<tr>
  <td class="school">MIT</td>
  <td class="program">EECS</td>
  <td class="decision">Accepted</td>
  <td class="date">Jan 15, 2026</td>
  <td class="comments">GRE 320, international</td>
</tr>
<tr>
  <td class="school">Stanford</td>
  <td class="status">Rejected</td>
</tr>
</tbody></table>
</body></html>`

func TestExtractEntriesFromTable(t *testing.T) {
	entries := ExtractEntries(tablePage)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "MIT", first.Get("institution"))
	assert.Equal(t, "EECS", first.Get("program"))
	assert.Equal(t, "Accepted", first.Get("decision"))
	assert.Equal(t, "Jan 15, 2026", first.Get("date_added"))
	assert.Equal(t, "GRE 320, international", first.Get("comments"))
	assert.Contains(t, first.RawHTML, "MIT")

	second := entries[1]
	assert.Equal(t, "Stanford", second.Get("institution"))
	assert.Equal(t, "Rejected", second.Get("decision"))
}

func TestExtractEntriesSelectorPrecedence(t *testing.T) {
	// A results table and card markup on the same page: the table
	// selector comes first, so the cards must be ignored.
	page := `<html><body>
<table class="results"><tbody>
<tr><td class="school">Table School</td></tr>
</tbody></table>
<div class="card"><span class="school">Card School</span></div>
</body></html>`

	entries := ExtractEntries(page)
	require.Len(t, entries, 1)
	assert.Equal(t, "Table School", entries[0].Get("institution"))
}

func TestExtractEntriesCardFallback(t *testing.T) {
	page := `<html><body>
<div class="card">
  <span class="institution">Berkeley</span>
  <span class="status">Waitlisted</span>
</div>
</body></html>`

	entries := ExtractEntries(page)
	require.Len(t, entries, 1)
	assert.Equal(t, "Berkeley", entries[0].Get("institution"))
	assert.Equal(t, "Waitlisted", entries[0].Get("decision"))
}

func TestExtractEntriesDivClassFallback(t *testing.T) {
	// No structural selector hits; a div with a listing-ish class name
	// is picked up and its text preserved as raw_content.
	page := `<html><body>
<div class="listing-item">Cornell <b>CS PhD</b> Accepted</div>
</body></html>`

	entries := ExtractEntries(page)
	require.Len(t, entries, 1)
	assert.Equal(t, "Cornell | CS PhD | Accepted", entries[0].Get("raw_content"))
	assert.NotEmpty(t, entries[0].RawHTML)
}

func TestExtractEntriesDiscardsEmptyRows(t *testing.T) {
	page := `<html><body>
<table class="results"><tbody>
<tr><td class="school">Princeton</td></tr>
<tr><td>   </td></tr>
</tbody></table>
</body></html>`

	entries := ExtractEntries(page)
	require.Len(t, entries, 1)
	assert.Equal(t, "Princeton", entries[0].Get("institution"))
}

func TestExtractEntriesNoMatches(t *testing.T) {
	assert.Empty(t, ExtractEntries(`<html><body><p>No results found.</p></body></html>`))
	assert.Empty(t, ExtractEntries(""))
}

func TestNextPageURLExplicitLink(t *testing.T) {
	t.Run("absolute href", func(t *testing.T) {
		page := `<html><body><a class="next" href="https://example.com/survey?page=7">Next</a></body></html>`
		got := NextPageURL(page, "https://example.com/survey", 6)
		assert.Equal(t, "https://example.com/survey?page=7", got)
	})

	t.Run("relative href resolved against listing", func(t *testing.T) {
		page := `<html><body><a rel="next" href="/survey?page=2">Next</a></body></html>`
		got := NextPageURL(page, "https://example.com/survey", 1)
		assert.Equal(t, "https://example.com/survey?page=2", got)
	})
}

func TestNextPageURLPatternDetection(t *testing.T) {
	t.Run("path segment scheme", func(t *testing.T) {
		page := `<html><body><div class="pagination"><a href="/survey/page/3">3</a></div></body></html>`
		got := NextPageURL(page, "https://example.com/survey", 3)
		assert.Equal(t, "https://example.com/survey/page/4", got)
	})

	t.Run("query parameter scheme", func(t *testing.T) {
		page := `<html><body><div class="pagination"><a href="/survey?page=3">3</a></div></body></html>`
		got := NextPageURL(page, "https://example.com/survey", 3)
		assert.Equal(t, "https://example.com/survey?page=4", got)
	})

	t.Run("no pagination defaults to query parameter", func(t *testing.T) {
		got := NextPageURL("<html><body></body></html>", "https://example.com/survey", 1)
		assert.Equal(t, "https://example.com/survey?page=2", got)
	})
}
