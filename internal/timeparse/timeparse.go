// Package timeparse canonicalizes free-text time expressions as they appear
// in event previews and edit forms of scheduling web apps.
//
// The canonical form of a time expression is its minute-of-day: an integer
// in [0, 1439]. Two expressions denote the same start time iff their
// minute-of-day values are equal. Expressions that cannot be parsed have no
// canonical form and never compare equal to anything, including each other.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay bounds valid minute-of-day values ([0, MinutesPerDay)).
const MinutesPerDay = 24 * 60

var (
	// meridiemRe matches dotted locale variants of am/pm markers after
	// lowercasing: "a.m.", "a. m.", "p.m.", "p. m.". No leading boundary:
	// the marker may be glued to the minutes ("7:00p. m."), and the
	// mandatory dot keeps plain words from matching.
	meridiemRe = regexp.MustCompile(`([ap])\s*\.\s*m\s*\.?`)

	// timeRe matches H:MM or H.MM with an optional am/pm marker, with or
	// without separating whitespace. Applied to normalized text only.
	timeRe = regexp.MustCompile(`(\d{1,2})[:.](\d{2})(?:\s*(am|pm))?`)
)

// Normalize lowercases text and collapses meridiem variants ("a.m.",
// "A. M.") into the canonical "am"/"pm" tokens. All other characters are
// left untouched. Normalize is idempotent.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	return meridiemRe.ReplaceAllString(lower, "${1}m")
}

// ToMinutes parses a time expression of the form "H:MM" or "H.MM",
// optionally followed by an am/pm marker, into its minute-of-day.
//
// Conventions:
//   - hour 12 with "am" or with no marker maps to minute 0 (12:00 am is the
//     start of the day)
//   - hour 12 with "pm" stays 12
//   - other hours gain 12 when marked "pm"
//
// The second return value is false when the expression does not match or
// encodes an out-of-range time; callers must treat that as "never equal to
// any target".
func ToMinutes(expr string) (int, bool) {
	norm := strings.TrimSpace(Normalize(expr))

	m := timeRe.FindStringSubmatch(norm)
	if m == nil || m[0] != norm {
		return 0, false
	}
	return submatchToMinutes(m)
}

// ExtractStartTime normalizes free text and parses the first time-like
// substring in it. Event previews commonly read like
// "07:00 am - 07:50 am Reformer": the first occurrence is the start time,
// later occurrences are end times or unrelated.
func ExtractStartTime(freeText string) (int, bool) {
	norm := Normalize(freeText)

	m := timeRe.FindStringSubmatch(norm)
	if m == nil {
		return 0, false
	}
	return submatchToMinutes(m)
}

func submatchToMinutes(m []string) (int, bool) {
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	if hour > 23 || minute > 59 {
		return 0, false
	}

	switch m[3] {
	case "pm":
		if hour > 12 {
			return 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am", "":
		// 12:xx with no marker follows the midnight convention, same as am.
		if hour == 12 {
			hour = 0
		}
	}

	total := hour*60 + minute
	if total < 0 || total >= MinutesPerDay {
		return 0, false
	}
	return total, true
}
