// Package derive mines structured attributes out of free-text note
// fields: academic term, nationality, degree, decision status, GRE
// component scores, and calendar dates. Every function is pure and
// independent; a miss yields nil, never an error.
package derive

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	termPattern    = regexp.MustCompile(`(?i)(Fall|Spring|Summer)\s+\d{4}`)
	intlPattern    = regexp.MustCompile(`(?i)\binternational\b`)
	usPattern      = regexp.MustCompile(`(?i)\bamerican\b|\bus citizen\b`)
	phdPattern     = regexp.MustCompile(`(?i)\bphd\b`)
	mastersPattern = regexp.MustCompile(`(?i)\bmaster`)
	acceptPattern  = regexp.MustCompile(`(?i)\baccepted\b`)
	rejectPattern  = regexp.MustCompile(`(?i)\brejected\b`)
	waitPattern    = regexp.MustCompile(`(?i)\bwait\s*listed\b|\bwaitlisted\b`)
	greTotal       = regexp.MustCompile(`GRE\s+(\d{3})`)
	greVerbal      = regexp.MustCompile(`GRE\s*V\s*(\d{2,3})`)
	greWriting     = regexp.MustCompile(`GRE\s*AW\s*([\d.]+)`)
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{"January 2, 2006", "Jan 2, 2006", "01/02/06"}

// Term extracts an academic term like "Fall 2026". Returns nil when no
// season-plus-year phrase occurs in the text.
func Term(text string) *string {
	if text == "" {
		return nil
	}
	if m := termPattern.FindString(text); m != "" {
		return &m
	}
	return nil
}

// Nationality classifies the applicant as "International" or "American".
// The international check runs first; only one classification is ever
// returned.
func Nationality(text string) *string {
	if text == "" {
		return nil
	}
	if intlPattern.MatchString(text) {
		return ptr("International")
	}
	if usPattern.MatchString(text) {
		return ptr("American")
	}
	return nil
}

// Degree classifies the degree as "PhD" or "Masters". The masters match
// is a prefix match so "masters" and "master's" both hit.
func Degree(text string) *string {
	if text == "" {
		return nil
	}
	if phdPattern.MatchString(text) {
		return ptr("PhD")
	}
	if mastersPattern.MatchString(text) {
		return ptr("Masters")
	}
	return nil
}

// Status detects the decision keyword: "Accepted", "Rejected", or
// "Waitlisted" ("wait listed" also counts).
func Status(text string) *string {
	if text == "" {
		return nil
	}
	if acceptPattern.MatchString(text) {
		return ptr("Accepted")
	}
	if rejectPattern.MatchString(text) {
		return ptr("Rejected")
	}
	if waitPattern.MatchString(text) {
		return ptr("Waitlisted")
	}
	return nil
}

// GREParts extracts the GRE total, verbal, and analytical writing
// scores. Each component is matched independently and is nil when
// absent.
func GREParts(text string) (gre, greV, greAW *float64) {
	if text == "" {
		return nil, nil, nil
	}
	if m := greTotal.FindStringSubmatch(text); m != nil {
		gre = ParseFloat(m[1])
	}
	if m := greVerbal.FindStringSubmatch(text); m != nil {
		greV = ParseFloat(m[1])
	}
	if m := greWriting.FindStringSubmatch(text); m != nil {
		greAW = ParseFloat(m[1])
	}
	return gre, greV, greAW
}

// Date parses a date string in one of the supported listing formats:
// "January 15, 2026", "Jan 15, 2026", or "01/15/26". Unparseable or
// empty input yields nil.
func Date(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}

// ParseFloat converts a string to a float, returning nil when the input
// is not numeric.
func ParseFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

// SplitNotes splits pipe-delimited note text into trimmed, non-empty
// segments.
func SplitNotes(text string) []string {
	if text == "" {
		return nil
	}
	var parts []string
	for _, segment := range strings.Split(text, "|") {
		if s := strings.TrimSpace(segment); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// UniversityFromNotes returns the first pipe-delimited segment, used as
// a university fallback when no structured school field exists.
func UniversityFromNotes(text string) *string {
	parts := SplitNotes(text)
	if len(parts) >= 1 {
		return &parts[0]
	}
	return nil
}

// ProgramFromNotes returns the second pipe-delimited segment, used as a
// program fallback when no structured program field exists.
func ProgramFromNotes(text string) *string {
	parts := SplitNotes(text)
	if len(parts) >= 2 {
		return &parts[1]
	}
	return nil
}

func ptr(s string) *string { return &s }
