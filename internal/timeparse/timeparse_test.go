package timeparse

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMeridiemVariants(t *testing.T) {
	cases := map[string]string{
		"7:00 AM":        "7:00 am",
		"7:00 a.m.":      "7:00 am",
		"7:00 A. M.":     "7:00 am",
		"7:00 P.M.":      "7:00 pm",
		"7:00p. m.":      "7:00pm",
		"7:00P.M.":       "7:00pm",
		"no time here":   "no time here",
		"map of rooms":   "map of rooms",
		"Reformer 07:00": "reformer 07:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"7:00 A.M. - 7:50 A.M. Reformer",
		"already lower 7:00 am",
		"",
		"P. M. mixed A.m. text",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestToMinutesTwelveHourAnchors(t *testing.T) {
	cases := []struct {
		expr string
		want int
	}{
		{"12:00 am", 0},
		{"12:00 pm", 720},
		{"1:00 pm", 780},
		{"11:59 pm", 1439},
		{"12:30 am", 30},
		{"12:00", 0}, // hour 12 with no marker follows the am convention
	}
	for _, c := range cases {
		got, ok := ToMinutes(c.expr)
		require.True(t, ok, "expr %q", c.expr)
		assert.Equal(t, c.want, got, "expr %q", c.expr)
	}
}

func TestToMinutesMonotonicAcrossAfternoon(t *testing.T) {
	// 12:00 pm, 1:00 pm, ..., 11:00 pm must be strictly increasing.
	prev, ok := ToMinutes("12:00 pm")
	require.True(t, ok)
	for h := 1; h <= 11; h++ {
		expr := strconv.Itoa(h) + ":00 pm"
		got, ok := ToMinutes(expr)
		require.True(t, ok, "expr %q", expr)
		assert.Greater(t, got, prev, "expr %q", expr)
		prev = got
	}
}

func TestToMinutesFormats(t *testing.T) {
	cases := []struct {
		expr string
		want int
		ok   bool
	}{
		{"7:00", 420, true},
		{"07:00", 420, true},
		{"7.30", 450, true},
		{"7.30pm", 1170, true},
		{"7:30 p.m.", 1170, true},
		{"7:30p.m.", 1170, true}, // marker glued to the minutes
		{"7:30p. m.", 1170, true},
		{"19:30", 1170, true},
		{"0:05", 5, true},
		{"24:00", 0, false},
		{"7:60", 0, false},
		{"13:00 pm", 0, false},
		{"seven", 0, false},
		{"", 0, false},
		{"7:00 am extra", 0, false}, // trailing text is not a time expression
	}
	for _, c := range cases {
		got, ok := ToMinutes(c.expr)
		assert.Equal(t, c.ok, ok, "expr %q", c.expr)
		if c.ok {
			assert.Equal(t, c.want, got, "expr %q", c.expr)
		}
	}
}

func TestExtractStartTimeFirstOccurrenceWins(t *testing.T) {
	got, ok := ExtractStartTime("07:00 am - 07:50 am Reformer")
	require.True(t, ok)
	assert.Equal(t, 7*60, got)
}

func TestExtractStartTime(t *testing.T) {
	cases := []struct {
		text string
		want int
		ok   bool
	}{
		{"Mat Class 18:15 - 19:00 (Sala 2)", 18*60 + 15, true},
		{"7:00 P.M. Power Hour", 19 * 60, true},
		{"fully booked", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ExtractStartTime(c.text)
		assert.Equal(t, c.ok, ok, "text %q", c.text)
		if c.ok {
			assert.Equal(t, c.want, got, "text %q", c.text)
		}
	}
}
