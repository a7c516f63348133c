// Package mutate performs the capacity write on a confirmed edit form.
// It is only ever invoked after both gate stages returned Confirmed; no
// other path reaches it.
package mutate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	appLog "seatcap/internal/log"
	"seatcap/internal/timeparse"
)

// errorBannerSel matches common post-save error banners.
const errorBannerSel = `.alert-danger, .error, [role="alert"]`

// Apply writes capacity into the edit form's seat field and activates the
// save control.
//
// The save control is located by label allow-list (mirror image of the
// gate's deny-list): among candidate buttons, only one whose label contains
// a save word is clicked, so a mislocated selector cannot hit a destructive
// control.
func Apply(ctx context.Context, page driver.Page, cfg *config.Config, capacity int) error {
	if capacity < 0 {
		return errors.New("mutate: capacity must be non-negative")
	}

	settle := time.Duration(cfg.SettleMillis) * time.Millisecond

	field, err := findFirst(ctx, page, cfg.Selectors.CapacityField)
	if err != nil {
		return fmt.Errorf("mutate: capacity field: %w", err)
	}
	if err := page.SetValue(ctx, field, strconv.Itoa(capacity)); err != nil {
		return fmt.Errorf("mutate: write capacity: %w", err)
	}
	page.Settle(ctx, settle)

	saveSel, err := findSaveControl(ctx, page, cfg.Selectors.SaveLabels)
	if err != nil {
		return fmt.Errorf("mutate: save control: %w", err)
	}
	if err := page.Click(ctx, saveSel); err != nil {
		return fmt.Errorf("mutate: save: %w", err)
	}
	page.Settle(ctx, settle)

	if msg, found := errorBanner(ctx, page); found {
		return fmt.Errorf("mutate: app rejected the save: %s", msg)
	}

	appLog.Info("capacity applied", "capacity", capacity)
	return nil
}

func findFirst(ctx context.Context, page driver.Page, selectors []string) (string, error) {
	for _, sel := range selectors {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		return sel, nil
	}
	return "", fmt.Errorf("no element matched %v", selectors)
}

// findSaveControl tags submit-capable controls in-page and returns a handle
// to the first one whose label contains a save word.
func findSaveControl(ctx context.Context, page driver.Page, saveLabels []string) (string, error) {
	labels, err := json.Marshal(saveLabels)
	if err != nil {
		return "", err
	}

	js := fmt.Sprintf(`(() => {
		const words = %s.map(w => w.toLowerCase());
		const controls = document.querySelectorAll(
			'button, input[type="submit"], [role="button"]');
		let i = 0;
		for (const el of controls) {
			const label = ((el.innerText || el.textContent || '') + ' ' +
				(el.value || '') + ' ' +
				(el.getAttribute('aria-label') || '')).toLowerCase();
			if (words.some(w => label.indexOf(w) !== -1)) {
				el.setAttribute('data-seatcap-save', String(i));
				return String(i);
			}
			i++;
		}
		return '';
	})()`, labels)

	var handle string
	if err := page.Eval(ctx, js, &handle); err != nil {
		return "", err
	}
	if handle == "" {
		return "", errors.New("no control with a save label")
	}
	return fmt.Sprintf(`[data-seatcap-save=%q]`, handle), nil
}

func errorBanner(ctx context.Context, page driver.Page) (string, bool) {
	found, err := page.Exists(ctx, errorBannerSel)
	if err != nil || !found {
		return "", false
	}
	text, err := page.Text(ctx, errorBannerSel)
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(timeparse.Normalize(text))
	if text == "" {
		return "", false
	}
	return text, true
}
