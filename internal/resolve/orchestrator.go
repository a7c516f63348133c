package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
)

// Resolution is a successfully confirmed target: both gate stages passed
// and the page is sitting on the edit form of the matched occurrence.
type Resolution struct {
	Candidate model.ScoredCandidate
}

// Orchestrator sequences Navigator, Scorer and Gate over one exclusively
// owned page. Each step is a blocking interaction followed by a settle
// wait; there is no parallel exploration of candidates or dates.
type Orchestrator struct {
	Nav    *Navigator
	Scorer *Scorer
	Gate   *Gate

	sel    config.SelectorsConfig
	settle time.Duration
}

func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		Nav:    NewNavigator(cfg),
		Scorer: NewScorer(cfg),
		Gate:   NewGate(cfg),
		sel:    cfg.Selectors,
		settle: time.Duration(cfg.SettleMillis) * time.Millisecond,
	}
}

// Resolve runs one full resolution attempt: navigate to the date, pick the
// top-scored candidate, open it, and pass both gate stages. It fails fast
// with a typed *Failure at the first unmet precondition, and on any failure
// after a surface was opened it attempts the non-destructive close first.
func (o *Orchestrator) Resolve(ctx context.Context, page driver.Page, spec model.TargetSpec) (*Resolution, error) {
	appLog.Info("resolution attempt starting",
		"date", spec.Date, "time", spec.Time, "name", spec.Name)

	if err := o.Nav.GotoDate(ctx, page, spec.Date); err != nil {
		return nil, NewFailure(KindNavigationFailure, spec, err)
	}

	best, found, err := o.Scorer.FindBest(ctx, page, spec)
	if err != nil {
		return nil, NewFailure(KindNoCandidate, spec, err)
	}
	if !found {
		return nil, NewFailure(KindNoCandidate, spec, errors.New("no event rendered for target date"))
	}

	chosen := o.pickCandidate(best)

	if err := page.Click(ctx, chosen.Handle); err != nil {
		return nil, NewFailure(KindNoCandidate, spec, fmt.Errorf("open candidate: %w", err))
	}
	page.Settle(ctx, o.settle)

	overlayRes, err := o.Gate.ConfirmOverlay(ctx, page, spec)
	if err != nil {
		o.closeQuietly(ctx, page)
		return nil, NewFailure(KindOverlayRejected, spec, err)
	}
	if overlayRes != model.MatchConfirmed {
		o.closeQuietly(ctx, page)
		return nil, NewFailure(KindOverlayRejected, spec,
			fmt.Errorf("overlay check: %s", overlayRes))
	}

	if err := o.advanceToEdit(ctx, page); err != nil {
		o.closeQuietly(ctx, page)
		return nil, NewFailure(KindFormRejected, spec, err)
	}

	formRes, err := o.Gate.ConfirmForm(ctx, page, spec)
	if err != nil {
		o.closeQuietly(ctx, page)
		return nil, NewFailure(KindFormRejected, spec, err)
	}
	if formRes != model.MatchConfirmed {
		o.closeQuietly(ctx, page)
		return nil, NewFailure(KindFormRejected, spec,
			fmt.Errorf("form check: %s", formRes))
	}

	appLog.Info("resolution confirmed",
		"date", spec.Date, "time", spec.Time, "score", chosen.TotalScore)
	return &Resolution{Candidate: chosen}, nil
}

// pickCandidate is the single decision point for candidate selection. Only
// the top-scored candidate is ever opened; there is no backtracking to the
// second-best on gate rejection. A retry policy would slot in here.
func (o *Orchestrator) pickCandidate(best model.ScoredCandidate) model.ScoredCandidate {
	return best
}

// advanceToEdit moves from the confirmed overlay to the full edit view.
func (o *Orchestrator) advanceToEdit(ctx context.Context, page driver.Page) error {
	for _, sel := range o.sel.EditLink {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		if err := page.Click(ctx, sel); err != nil {
			continue
		}
		page.Settle(ctx, o.settle)
		return nil
	}
	return errors.New("no edit link on confirmed overlay")
}

// closeQuietly runs the non-destructive close and logs (never returns) its
// error, so cleanup can never mask the failure that triggered it.
func (o *Orchestrator) closeQuietly(ctx context.Context, page driver.Page) {
	if err := o.Gate.CloseNonDestructive(ctx, page); err != nil {
		appLog.Error("non-destructive close failed", err)
	}
}
