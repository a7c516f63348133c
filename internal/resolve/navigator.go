package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	appLog "seatcap/internal/log"
)

// Navigator brings the remote calendar view to a requested date.
//
// Strategy order, each followed by a settle wait:
//  1. Native date-input injection (fastest; bypasses visual paging).
//  2. Direct activation of a calendar cell or link tagged with the date.
//  3. Bounded bidirectional paging: forward up to PageBound steps, then
//     backward until the walk reaches -PageBound, re-checking after each
//     step. The calendar may render weekly or monthly grids of unknown
//     span, so the bounded walk guarantees termination while covering
//     realistic ranges.
type Navigator struct {
	Sel config.SelectorsConfig

	// PageBound caps paging steps in each direction from the start view.
	PageBound int

	// Settle is the pause after each interaction.
	Settle time.Duration
}

func NewNavigator(cfg *config.Config) *Navigator {
	return &Navigator{
		Sel:       cfg.Selectors,
		PageBound: cfg.NavPageBound,
		Settle:    time.Duration(cfg.SettleMillis) * time.Millisecond,
	}
}

// GotoDate attempts to bring the calendar to date (ISO "2006-01-02").
func (n *Navigator) GotoDate(ctx context.Context, page driver.Page, date string) error {
	if visible, _ := n.dateVisible(ctx, page, date); visible {
		return nil
	}

	if ok := n.tryDateInput(ctx, page, date); ok {
		appLog.Debug("navigation via date input", "date", date)
		return nil
	}
	if ok := n.tryDateCell(ctx, page, date); ok {
		appLog.Debug("navigation via date cell", "date", date)
		return nil
	}
	if ok := n.tryPaging(ctx, page, date); ok {
		appLog.Debug("navigation via paging", "date", date)
		return nil
	}

	return fmt.Errorf("calendar date %s unreachable within %d paging steps", date, n.PageBound)
}

// tryDateInput sets a native date input's value and dispatches input/change
// notifications.
func (n *Navigator) tryDateInput(ctx context.Context, page driver.Page, date string) bool {
	for _, sel := range n.Sel.DateInput {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		if err := page.SetValue(ctx, sel, date); err != nil {
			appLog.Debug("date input injection failed", "selector", sel, "err", err)
			continue
		}
		page.Settle(ctx, n.Settle)
		if visible, _ := n.dateVisible(ctx, page, date); visible {
			return true
		}
	}
	return false
}

// tryDateCell activates a calendar cell or link tagged with the target date,
// covering views already showing the right range.
func (n *Navigator) tryDateCell(ctx context.Context, page driver.Page, date string) bool {
	for _, pattern := range n.Sel.DateCell {
		sel := cellSelector(pattern, date)
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		if err := page.Click(ctx, sel); err != nil {
			continue
		}
		page.Settle(ctx, n.Settle)
		if visible, _ := n.dateVisible(ctx, page, date); visible {
			return true
		}
	}
	return false
}

// pageWalk is the explicit state of the bounded bidirectional search over
// the calendar's page sequence.
type pageWalk struct {
	offset  int // current page offset from the start view
	dir     int // +1 forward, -1 backward
	visited int // total steps taken
	bound   int // max |offset| in either direction
}

func (w *pageWalk) step() (int, bool) {
	if w.dir > 0 && w.offset >= w.bound {
		// Forward leg exhausted; turn around.
		w.dir = -1
	}
	if w.dir < 0 && w.offset <= -w.bound {
		return 0, false
	}
	w.offset += w.dir
	w.visited++
	return w.dir, true
}

// tryPaging walks the calendar's paging controls: forward to +bound, then
// backward through the start view to -bound, checking for the target date
// after every step.
func (n *Navigator) tryPaging(ctx context.Context, page driver.Page, date string) bool {
	walk := &pageWalk{dir: 1, bound: n.PageBound}

	for {
		if err := ctx.Err(); err != nil {
			return false
		}
		dir, ok := walk.step()
		if !ok {
			appLog.Debug("paging walk exhausted", "date", date, "visited", walk.visited)
			return false
		}

		sels := n.Sel.PageForward
		if dir < 0 {
			sels = n.Sel.PageBackward
		}
		if !n.clickFirst(ctx, page, sels) {
			// No paging control in this direction; give the backward leg
			// its full bound from the current position.
			if dir > 0 {
				walk.dir = -1
				walk.offset = 0
				continue
			}
			return false
		}

		page.Settle(ctx, n.Settle)
		if visible, _ := n.dateVisible(ctx, page, date); visible {
			return true
		}
	}
}

func (n *Navigator) clickFirst(ctx context.Context, page driver.Page, selectors []string) bool {
	for _, sel := range selectors {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		if err := page.Click(ctx, sel); err != nil {
			continue
		}
		return true
	}
	return false
}

// dateVisible reports whether the current view renders any element tagged
// with the target date.
func (n *Navigator) dateVisible(ctx context.Context, page driver.Page, date string) (bool, error) {
	var lastErr error
	for _, attr := range n.Sel.DateMarkerAttrs {
		sel := fmt.Sprintf(`[%s*=%q]`, attr, date)
		found, err := page.Exists(ctx, sel)
		if err != nil {
			lastErr = err
			continue
		}
		if found {
			return true, nil
		}
	}
	if lastErr != nil {
		return false, lastErr
	}
	return false, nil
}

// cellSelector substitutes date into a %s-bearing selector pattern.
func cellSelector(pattern, date string) string {
	if !strings.Contains(pattern, "%s") {
		return pattern
	}
	return strings.ReplaceAll(pattern, "%s", date)
}
