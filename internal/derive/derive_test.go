package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerm(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"embedded term", "Accepted to the PhD program for Fall 2026, very excited", "Fall 2026"},
		{"lowercase season", "starting spring 2025", "spring 2025"},
		{"summer term", "Summer 2024 start date", "Summer 2024"},
		{"no term", "no term mentioned here", ""},
		{"season without year", "Fall semester", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Term(tt.text)
			if tt.want == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.want, *got)
			}
		})
	}
}

func TestNationality(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"international", "International student with funding", "International"},
		{"american", "American applicant, 3.8 GPA", "American"},
		{"us citizen phrasing", "US citizen applying from abroad", "American"},
		{"international wins over american mention", "international TA, american university", "International"},
		{"no signal", "strong application", ""},
		{"substring does not match", "internationally renowned", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Nationality(tt.text)
			if tt.want == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.want, *got)
			}
		})
	}
}

func TestDegree(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"phd", "PhD in Computer Science", "PhD"},
		{"masters plural", "applying to masters programs", "Masters"},
		{"masters possessive", "Master's degree in stats", "Masters"},
		{"phd wins over masters", "PhD after my masters", "PhD"},
		{"no degree", "undergraduate research", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Degree(tt.text)
			if tt.want == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.want, *got)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"accepted", "Accepted via email", "Accepted"},
		{"rejected", "rejected after interview", "Rejected"},
		{"waitlisted", "Waitlisted, still hoping", "Waitlisted"},
		{"wait listed with space", "wait listed last week", "Waitlisted"},
		{"no status", "still waiting to hear back", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Status(tt.text)
			if tt.want == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.want, *got)
			}
		})
	}
}

func TestGREParts(t *testing.T) {
	t.Run("all three components", func(t *testing.T) {
		gre, greV, greAW := GREParts("GRE 320 GRE V 160 GRE AW 4.5")
		require.NotNil(t, gre)
		require.NotNil(t, greV)
		require.NotNil(t, greAW)
		assert.Equal(t, 320.0, *gre)
		assert.Equal(t, 160.0, *greV)
		assert.Equal(t, 4.5, *greAW)
	})

	t.Run("total only", func(t *testing.T) {
		gre, greV, greAW := GREParts("GRE 325, no subscores reported")
		require.NotNil(t, gre)
		assert.Equal(t, 325.0, *gre)
		assert.Nil(t, greV)
		assert.Nil(t, greAW)
	})

	t.Run("verbal without total", func(t *testing.T) {
		gre, greV, _ := GREParts("GRE V 158 only")
		assert.Nil(t, gre)
		require.NotNil(t, greV)
		assert.Equal(t, 158.0, *greV)
	})

	t.Run("no scores", func(t *testing.T) {
		gre, greV, greAW := GREParts("no scores")
		assert.Nil(t, gre)
		assert.Nil(t, greV)
		assert.Nil(t, greAW)
	})

	t.Run("empty", func(t *testing.T) {
		gre, greV, greAW := GREParts("")
		assert.Nil(t, gre)
		assert.Nil(t, greV)
		assert.Nil(t, greAW)
	})
}

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"full month", "January 15, 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"abbreviated month", "Jan 15, 2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"numeric slash", "01/15/26", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"padded whitespace", "  Mar 3, 2025  ", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Date(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Year(), got.Year())
			assert.Equal(t, tt.want.Month(), got.Month())
			assert.Equal(t, tt.want.Day(), got.Day())
		})
	}

	t.Run("garbage yields nil", func(t *testing.T) {
		assert.Nil(t, Date("garbage"))
	})
	t.Run("empty yields nil", func(t *testing.T) {
		assert.Nil(t, Date(""))
	})
}

func TestSplitNotes(t *testing.T) {
	assert.Equal(t, []string{"MIT", "Computer Science", "Accepted"},
		SplitNotes(" MIT | Computer Science |  Accepted "))
	assert.Nil(t, SplitNotes(""))
	assert.Nil(t, SplitNotes(" | | "))
}

func TestNotesFallbacks(t *testing.T) {
	notes := "Stanford University | MS Statistics | Fall 2026"

	uni := UniversityFromNotes(notes)
	require.NotNil(t, uni)
	assert.Equal(t, "Stanford University", *uni)

	prog := ProgramFromNotes(notes)
	require.NotNil(t, prog)
	assert.Equal(t, "MS Statistics", *prog)

	assert.Nil(t, UniversityFromNotes(""))
	assert.Nil(t, ProgramFromNotes("only one segment"))
}

func TestParseFloat(t *testing.T) {
	require.NotNil(t, ParseFloat("3.85"))
	assert.Equal(t, 3.85, *ParseFloat("3.85"))
	assert.Nil(t, ParseFloat("n/a"))
	assert.Nil(t, ParseFloat(""))
}
