// Package clean converts loosely-keyed raw entries into the strict
// canonical schema: markup stripped, entities decoded, whitespace
// collapsed, and every record carrying exactly the same field set.
package clean

import (
	"html"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/pkg/record"
)

const defaultMaxNotesLen = 1000

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Source key priority per canonical field. The first present, non-empty
// key wins; later keys are never consulted once a field is filled.
var (
	schoolKeys   = []string{"institution", "school", "university"}
	programKeys  = []string{"program", "major", "department", "degree"}
	decisionKeys = []string{"decision", "status", "result"}
	dateKeys     = []string{"date_added", "decision_date", "date", "notification_date"}
	gpaKeys      = []string{"gpa", "undergrad_gpa"}
	greKeys      = []string{"gre", "gre_score", "gre_scores"}
	notesKeys    = []string{"comments", "notes", "details", "raw_content"}
)

// Backfill patterns for fields the selector pass missed. These run
// against the cleaned text of the retained markup and only ever fill
// fields that are still empty.
var (
	schoolPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:University|College|Institute|School)\s+of\s+[\w\s]+`),
		regexp.MustCompile(`(?i)[\w\s]+(?:University|College|Institute|School)`),
		regexp.MustCompile(`(?i)(?:MIT|UCLA|USC|NYU|CMU|CalTech|Stanford|Harvard|Yale|Princeton)`),
	}
	decisionPattern = regexp.MustCompile(`(?i)\b(Accepted|Rejected|Waitlisted|Interview|Pending|Denied|Admitted)\b`)
	gpaPattern      = regexp.MustCompile(`(?i)\bGPA[:\s]*([0-9]\.[0-9]{1,2})\b`)
	grePatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bGRE[:\s]*(\d{3})[/\s]+(\d{3})`),
		regexp.MustCompile(`(?i)\bV[:\s]*(\d{3})[,\s]+Q[:\s]*(\d{3})`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
		regexp.MustCompile(`(?i)\b((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4})\b`),
	}
)

// Cleaner enforces the canonical output contract.
type Cleaner struct {
	MaxNotesLen int
}

// New returns a Cleaner with the default notes truncation limit.
func New() *Cleaner {
	return &Cleaner{MaxNotesLen: defaultMaxNotesLen}
}

// Text applies the full field cleaning pipeline: strip tags, decode
// entities, collapse whitespace, trim.
func Text(value string) string {
	if value == "" {
		return ""
	}
	value = tagPattern.ReplaceAllString(value, " ")
	value = html.UnescapeString(value)
	value = whitespacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// Clean maps every raw entry onto the canonical schema. Every returned
// record carries exactly the seven canonical fields; unknown values are
// empty strings, never omitted.
func (c *Cleaner) Clean(entries []record.Raw) []record.Canonical {
	log.Info().Int("entries", len(entries)).Msg("Cleaning scraped entries")

	cleaned := make([]record.Canonical, 0, len(entries))
	for i, entry := range entries {
		cleaned = append(cleaned, c.cleanEntry(entry))
		if (i+1)%5000 == 0 {
			log.Debug().Int("done", i+1).Int("total", len(entries)).Msg("Cleaning progress")
		}
	}

	log.Info().Int("cleaned", len(cleaned)).Msg("Cleaning complete")
	return cleaned
}

func (c *Cleaner) cleanEntry(entry record.Raw) record.Canonical {
	out := record.Canonical{
		School:       firstOf(entry, schoolKeys),
		Program:      firstOf(entry, programKeys),
		Decision:     firstOf(entry, decisionKeys),
		DecisionDate: firstOf(entry, dateKeys),
		GPA:          firstOf(entry, gpaKeys),
		GRE:          firstOf(entry, greKeys),
		Notes:        c.joinNotes(entry),
	}

	// A record that arrived without the key selector fields may still
	// have them buried in its retained markup.
	if entry.RawHTML != "" && (out.School == "" || out.Program == "" || out.Decision == "") {
		backfill(&out, entry.RawHTML)
	}

	return out
}

// firstOf returns the cleaned value of the first non-empty source key.
func firstOf(entry record.Raw, keys []string) string {
	for _, key := range keys {
		if v := Text(entry.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

// joinNotes aggregates every note-like source field, pipe-joined and
// truncated to the configured limit.
func (c *Cleaner) joinNotes(entry record.Raw) string {
	var parts []string
	for _, key := range notesKeys {
		if v := Text(entry.Get(key)); v != "" {
			parts = append(parts, v)
		}
	}
	notes := strings.Join(parts, " | ")
	if runes := []rune(notes); len(runes) > c.MaxNotesLen {
		notes = string(runes[:c.MaxNotesLen]) + "..."
	}
	return notes
}

// backfill re-extracts still-missing fields from the entry's retained
// markup. Fields already populated by key-mapping are never overwritten.
func backfill(out *record.Canonical, rawHTML string) {
	text := Text(rawHTML)
	if text == "" {
		return
	}

	if out.School == "" {
		for _, p := range schoolPatterns {
			if m := p.FindString(text); m != "" {
				out.School = strings.TrimSpace(m)
				break
			}
		}
	}

	if out.Decision == "" {
		if m := decisionPattern.FindStringSubmatch(text); m != nil {
			out.Decision = m[1]
		}
	}

	if out.GPA == "" {
		if m := gpaPattern.FindStringSubmatch(text); m != nil {
			out.GPA = m[1]
		}
	}

	if out.GRE == "" {
		for _, p := range grePatterns {
			if m := p.FindString(text); m != "" {
				out.GRE = strings.TrimSpace(m)
				break
			}
		}
	}

	if out.DecisionDate == "" {
		for _, p := range datePatterns {
			if m := p.FindStringSubmatch(text); m != nil {
				out.DecisionDate = strings.TrimSpace(m[1])
				break
			}
		}
	}
}
