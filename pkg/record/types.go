// Package record defines the data shapes that flow through the harvest
// pipeline: loosely-keyed raw entries from the page extractor and the
// strict canonical form produced by the cleaner.
package record

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Schema is the canonical key set. Every cleaned record carries exactly
// these keys, with empty strings standing in for unknown values.
var Schema = []string{
	"school",
	"program",
	"decision",
	"decision_date",
	"gpa",
	"gre",
	"notes",
}

// Raw is a single admissions listing as extracted from page markup.
// Field names are whatever the source page offered (institution, school,
// program, major, decision, status, ...); the cleaner maps them onto the
// canonical schema. The original element markup is retained so missing
// fields can be re-extracted downstream.
type Raw struct {
	Fields     map[string]string
	RawHTML    string
	SourcePage int
}

// NewRaw returns a Raw with an initialized field map.
func NewRaw() Raw {
	return Raw{Fields: make(map[string]string)}
}

// Set stores a field value, dropping empty values.
func (r *Raw) Set(key, value string) {
	if value == "" {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
}

// Get returns the named field or "".
func (r Raw) Get(key string) string {
	return r.Fields[key]
}

// Empty reports whether the record carries no extracted fields. The
// retained markup does not count as data.
func (r Raw) Empty() bool {
	return len(r.Fields) == 0
}

// MarshalJSON flattens the record into a single JSON object so the raw
// interchange file looks like the scraper wrote plain dictionaries.
func (r Raw) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Fields)+2)
	for k, v := range r.Fields {
		flat[k] = v
	}
	if r.RawHTML != "" {
		flat["raw_html"] = r.RawHTML
	}
	if r.SourcePage > 0 {
		flat["source_page"] = r.SourcePage
	}
	return json.Marshal(flat)
}

// UnmarshalJSON accepts a flat object, routing raw_html and source_page
// to their dedicated slots and everything else into Fields. Non-string
// values are stringified so arbitrary upstream payloads stay usable.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Fields = make(map[string]string, len(flat))
	for k, v := range flat {
		switch k {
		case "raw_html":
			if s, ok := v.(string); ok {
				r.RawHTML = s
			}
		case "source_page":
			switch n := v.(type) {
			case float64:
				r.SourcePage = int(n)
			case string:
				fmt.Sscanf(n, "%d", &r.SourcePage)
			}
		default:
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				r.Fields[k] = s
			} else {
				r.Fields[k] = fmt.Sprintf("%v", v)
			}
		}
	}
	return nil
}

// Canonical is a cleaned record with the fixed seven-field schema.
// Values are plain text: no markup, no entities, whitespace collapsed.
type Canonical struct {
	School       string `json:"school"`
	Program      string `json:"program"`
	Decision     string `json:"decision"`
	DecisionDate string `json:"decision_date"`
	GPA          string `json:"gpa"`
	GRE          string `json:"gre"`
	Notes        string `json:"notes"`
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Validate checks the canonical plain-text contract: no field may still
// contain anything that looks like a markup tag.
func (c Canonical) Validate() error {
	for key, value := range c.AsMap() {
		if tagPattern.MatchString(value) {
			return fmt.Errorf("field %q contains markup", key)
		}
	}
	return nil
}

// AsMap returns the record keyed by schema name, in support of callers
// that address fields dynamically (validators, loaders, templates).
func (c Canonical) AsMap() map[string]string {
	return map[string]string{
		"school":        c.School,
		"program":       c.Program,
		"decision":      c.Decision,
		"decision_date": c.DecisionDate,
		"gpa":           c.GPA,
		"gre":           c.GRE,
		"notes":         c.Notes,
	}
}
