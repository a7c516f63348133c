package resolve

import (
	"fmt"

	"seatcap/internal/model"
)

// FailureKind classifies fatal resolution failures. None are retried within
// one job; retry policy, if any, belongs to the caller.
type FailureKind string

const (
	// KindNavigationFailure: the target date was unreachable within the
	// paging bound.
	KindNavigationFailure FailureKind = "navigation_failure"

	// KindNoCandidate: no date-matching event element was rendered.
	KindNoCandidate FailureKind = "no_candidate"

	// KindOverlayRejected: the overlay stage of the gate did not confirm.
	KindOverlayRejected FailureKind = "overlay_rejected"

	// KindFormRejected: the edit-form stage of the gate did not confirm.
	KindFormRejected FailureKind = "form_rejected"

	// KindLoginFailed: the session collaborator could not authenticate.
	KindLoginFailed FailureKind = "login_failed"

	// KindMutationFailed: the capacity write after a doubly confirmed match
	// did not complete.
	KindMutationFailed FailureKind = "mutation_failed"
)

// Failure is a fatal, typed resolution error carrying enough of the
// attempted target to diagnose it.
type Failure struct {
	Kind FailureKind
	Date string
	Time string
	Name string
	Err  error
}

func NewFailure(kind FailureKind, spec model.TargetSpec, err error) *Failure {
	return &Failure{
		Kind: kind,
		Date: spec.Date,
		Time: spec.Time,
		Name: spec.Name,
		Err:  err,
	}
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("resolve: %s (date=%s time=%s", f.Kind, f.Date, f.Time)
	if f.Name != "" {
		msg += " name=" + f.Name
	}
	msg += ")"
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}
