package model

// TargetSpec identifies one class occurrence on the remote scheduling app.
// It is the immutable input to a single resolution attempt.
type TargetSpec struct {
	// Date is the target calendar date in ISO form ("2006-01-02"). The form
	// gate additionally requires this literal string to appear in the page
	// body, so it is kept as a string rather than a time.Time.
	Date string

	// Time is a free-text start time expression ("07:00", "7.00 pm",
	// "07:00 a.m."). It is canonicalized via internal/timeparse.
	Time string

	// Name is an optional class-name constraint, matched as a
	// case-insensitive substring of the candidate's preview text.
	Name string

	// StrictNameRequired is accepted from callers but does not change the
	// gate conjunction: both strict and non-strict resolutions require the
	// same time+name match. The flag is retained for wire compatibility.
	StrictNameRequired bool
}

// EventCandidate is one rendered event element considered during a
// resolution attempt. Candidates are created by enumerating the page's
// current event elements and are discarded when the attempt ends.
type EventCandidate struct {
	// Handle is an opaque reference to the rendered element, usable as a
	// selector by the page driver that produced it.
	Handle string

	// PreviewText is a normalized, lowercased, length-bounded snippet of the
	// element's text content.
	PreviewText string

	// DateMatch reports whether the element (or an ancestor) carries a date
	// marker matching the target date. Candidates without a date match are
	// structurally irrelevant and never scored.
	DateMatch bool
}

// ScoredCandidate is an EventCandidate with its ranking scores attached.
type ScoredCandidate struct {
	EventCandidate

	// TimeScore is 100 for an exact start-time match, max(0, 100-|delta|)
	// when a start time was extracted, 0 otherwise.
	TimeScore int

	// NameScore is 50 when no name constraint is given or the preview text
	// contains the target name, 0 otherwise.
	NameScore int

	// TotalScore = TimeScore + NameScore.
	TotalScore int
}

// MatchResult is the tri-state outcome of a single gate stage.
type MatchResult int

const (
	// MatchNotAnEventSurface means the opened surface is a blank
	// event-creation form, not an existing-event editor. Always a rejection.
	MatchNotAnEventSurface MatchResult = iota

	// MatchMismatch means the surface belongs to an existing event but its
	// date/time/name do not satisfy the target.
	MatchMismatch

	// MatchConfirmed means the surface satisfies the target. A capacity
	// mutation is only reachable after MatchConfirmed from both the overlay
	// stage and the form stage, in that order.
	MatchConfirmed
)

func (m MatchResult) String() string {
	switch m {
	case MatchNotAnEventSurface:
		return "not-an-event-surface"
	case MatchMismatch:
		return "mismatch"
	case MatchConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}
