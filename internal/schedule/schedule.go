// Package schedule resolves a recurrence rule into the concrete date of
// its next occurrence. Jobs may target "every Monday 07:00" style series
// instead of naming a date; the engine itself always works on one concrete
// date.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "seatcap/internal/log"
)

// isoDate is the wire format for calendar dates.
const isoDate = "2006-01-02"

// lookahead bounds how far into the future a rule is expanded. A rule with
// no occurrence inside the window is treated as having none at all.
const lookahead = 366 * 24 * time.Hour

// NextDate expands ruleText (an RFC 5545 RRULE, with or without the
// "RRULE:" prefix) and returns the ISO date of the first occurrence at or
// after ref, in loc.
func NextDate(ruleText string, ref time.Time, loc *time.Location) (string, error) {
	if ruleText == "" {
		return "", errors.New("schedule: empty rule")
	}
	if loc == nil {
		loc = time.Local
	}

	r, err := rrule.StrToRRule(ruleText)
	if err != nil {
		return "", fmt.Errorf("schedule: parse rule %q: %w", ruleText, err)
	}

	// Anchor the rule at the reference instant unless the rule text carried
	// its own DTSTART.
	if r.OrigOptions.Dtstart.IsZero() {
		r.DTStart(ref.In(loc))
	}

	var set rrule.Set
	set.RRule(r)

	refLocal := ref.In(loc)
	occ := set.Between(refLocal, refLocal.Add(lookahead), true)
	if len(occ) == 0 {
		return "", fmt.Errorf("schedule: rule %q has no occurrence within %s", ruleText, lookahead)
	}

	date := occ[0].In(loc).Format(isoDate)
	appLog.Debug("recurrence expanded", "rule", ruleText, "ref", refLocal.Format(isoDate), "date", date)
	return date, nil
}

// TargetDate picks the concrete date for a job: an explicit ISO date wins,
// otherwise the rule is expanded from now.
func TargetDate(date, ruleText string, now time.Time, loc *time.Location) (string, error) {
	if date != "" {
		if _, err := time.Parse(isoDate, date); err != nil {
			return "", fmt.Errorf("schedule: invalid date %q: %w", date, err)
		}
		return date, nil
	}
	return NextDate(ruleText, now, loc)
}
