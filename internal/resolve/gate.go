package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/timeparse"
)

// Gate is the two-stage verifier that must confirm a match before any
// capacity write. The overlay stage is a cheap pre-check on the first
// detail surface; the form stage re-verifies on the full edit view and
// additionally requires the literal target date in the page body, which
// defends against the date view changing underneath the attempt.
type Gate struct {
	Sel config.SelectorsConfig

	// Settle is the pause after dismiss interactions.
	Settle time.Duration

	// WaitTimeout bounds the wait for a required surface to appear.
	WaitTimeout time.Duration
}

func NewGate(cfg *config.Config) *Gate {
	return &Gate{
		Sel:         cfg.Selectors,
		Settle:      time.Duration(cfg.SettleMillis) * time.Millisecond,
		WaitTimeout: time.Duration(cfg.WaitTimeoutSec) * time.Second,
	}
}

// ConfirmOverlay waits for the detail surface opened by activating a
// candidate and verifies it against the target.
//
// Rejections:
//   - MatchNotAnEventSurface when the text carries creation-form markers or
//     lacks every existing-event-editor marker. This stops an empty
//     calendar click from being treated as a match.
//   - MatchMismatch when start time or name do not satisfy the target.
//
// StrictNameRequired does not relax or tighten anything: both modes apply
// the same time+name conjunction.
func (g *Gate) ConfirmOverlay(ctx context.Context, page driver.Page, spec model.TargetSpec) (model.MatchResult, error) {
	sel, err := g.waitAnySurface(ctx, page, g.Sel.Overlay)
	if err != nil {
		return model.MatchMismatch, fmt.Errorf("gate: overlay did not appear: %w", err)
	}

	text, err := page.Text(ctx, sel)
	if err != nil {
		return model.MatchMismatch, fmt.Errorf("gate: read overlay text: %w", err)
	}

	res := g.verify(spec, text)
	appLog.Debug("overlay check", "result", res, "surface", sel)
	return res, nil
}

// ConfirmForm verifies the full edit view reached after the overlay stage,
// plus the whole-page date check.
func (g *Gate) ConfirmForm(ctx context.Context, page driver.Page, spec model.TargetSpec) (model.MatchResult, error) {
	sel, err := g.waitAnySurface(ctx, page, g.Sel.EditForm)
	if err != nil {
		return model.MatchMismatch, fmt.Errorf("gate: edit form did not appear: %w", err)
	}

	text, err := page.Text(ctx, sel)
	if err != nil {
		return model.MatchMismatch, fmt.Errorf("gate: read form text: %w", err)
	}

	res := g.verify(spec, text)
	if res != model.MatchConfirmed {
		appLog.Debug("form check", "result", res, "surface", sel)
		return res, nil
	}

	body, err := page.BodyText(ctx)
	if err != nil {
		return model.MatchMismatch, fmt.Errorf("gate: read page body: %w", err)
	}
	if !strings.Contains(body, spec.Date) {
		appLog.Debug("form check: target date absent from page body", "date", spec.Date)
		return model.MatchMismatch, nil
	}

	appLog.Debug("form check", "result", model.MatchConfirmed, "surface", sel)
	return model.MatchConfirmed, nil
}

// verify applies the shared surface checks: creation-surface rejection,
// then the time+name conjunction.
func (g *Gate) verify(spec model.TargetSpec, surfaceText string) model.MatchResult {
	text := timeparse.Normalize(surfaceText)

	if g.isCreationSurface(text) {
		return model.MatchNotAnEventSurface
	}

	targetMinute, targetOK := timeparse.ToMinutes(spec.Time)
	startMinute, startOK := timeparse.ExtractStartTime(text)
	// An unparseable time on either side never equals anything.
	if !targetOK || !startOK || startMinute != targetMinute {
		return model.MatchMismatch
	}

	if spec.Name != "" && !strings.Contains(text, strings.ToLower(spec.Name)) {
		return model.MatchMismatch
	}

	return model.MatchConfirmed
}

// isCreationSurface reports whether normalized surface text looks like a
// blank event-creation form rather than an existing-event editor.
func (g *Gate) isCreationSurface(text string) bool {
	for _, marker := range g.Sel.CreateMarkers {
		if strings.Contains(text, strings.ToLower(marker)) {
			return true
		}
	}
	for _, marker := range g.Sel.EditMarkers {
		if strings.Contains(text, strings.ToLower(marker)) {
			return false
		}
	}
	// No editor marker at all: treat as not an event surface.
	return true
}

// CloseNonDestructive dismisses an opened surface while provably avoiding
// any control that could delete or cancel the underlying class. This is the
// most safety-critical behavior in the system: clicking the wrong control
// risks deleting a live class instead of merely inspecting it.
//
// It activates the first close-like control whose label clears the
// deny-list, falling back to a generic Escape dismiss when no safe explicit
// control exists. Its error must never mask the failure that triggered the
// close.
func (g *Gate) CloseNonDestructive(ctx context.Context, page driver.Page) error {
	for _, sel := range g.Sel.CloseControls {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		label, err := g.controlLabel(ctx, page, sel)
		if err != nil {
			continue
		}
		if g.denied(label) {
			appLog.Debug("close control denied", "selector", sel, "label", label)
			continue
		}
		if err := page.Click(ctx, sel); err != nil {
			appLog.Debug("close control click failed", "selector", sel, "err", err)
			continue
		}
		page.Settle(ctx, g.Settle)
		return nil
	}

	// Generic dismiss gesture: cannot activate any labeled control.
	if err := page.Press(ctx, "Escape"); err != nil {
		return fmt.Errorf("gate: dismiss gesture failed: %w", err)
	}
	page.Settle(ctx, g.Settle)
	return nil
}

// controlLabel collects the visible text plus aria-label and title of the
// first element matching sel, normalized for deny-list comparison.
func (g *Gate) controlLabel(ctx context.Context, page driver.Page, sel string) (string, error) {
	selLit, err := json.Marshal(sel)
	if err != nil {
		return "", err
	}
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return '';
		return [el.innerText || el.textContent || '',
			el.getAttribute('aria-label') || '',
			el.getAttribute('title') || ''].join(' ');
	})()`, selLit)

	var label string
	if err := page.Eval(ctx, js, &label); err != nil {
		return "", err
	}
	return timeparse.Normalize(label), nil
}

func (g *Gate) denied(label string) bool {
	for _, deny := range g.Sel.DenyLabels {
		if strings.Contains(label, strings.ToLower(deny)) {
			return true
		}
	}
	return false
}

// waitAnySurface polls the selector list until one matches, failing hard at
// WaitTimeout. Required surfaces only; best-effort waits go through
// Page.Settle instead.
func (g *Gate) waitAnySurface(ctx context.Context, page driver.Page, selectors []string) (string, error) {
	deadline := time.Now().Add(g.WaitTimeout)
	for {
		for _, sel := range selectors {
			found, err := page.Exists(ctx, sel)
			if err == nil && found {
				return sel, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no surface matched %v within %s", selectors, g.WaitTimeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
