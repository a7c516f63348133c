// Package login authenticates a browser session against the remote
// scheduling app and hands back a navigable page. The resolution engine
// assumes the session stays valid for one whole attempt.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatcap/internal/config"
	"seatcap/internal/driver"
	appLog "seatcap/internal/log"
)

// Login drives the app's login form:
//
//  1. Navigate to the login URL.
//  2. If a logged-in marker is already present (persistent cookie, SSO),
//     skip straight to the calendar view.
//  3. Otherwise fill the credential fields, submit, and wait for a
//     logged-in marker as a required element.
//  4. Navigate to the calendar view (BaseURL).
func Login(ctx context.Context, page driver.Page, cfg *config.Config) error {
	if cfg.BaseURL == "" {
		return errors.New("login: base_url is not configured")
	}

	if err := page.Navigate(ctx, cfg.LoginURL); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	page.Settle(ctx, time.Duration(cfg.SettleMillis)*time.Millisecond)

	if loggedIn(ctx, page, cfg.Selectors.LoggedIn) {
		appLog.Debug("session already authenticated")
		return gotoCalendar(ctx, page, cfg)
	}

	if cfg.Credentials.Username == "" || cfg.Credentials.Password == "" {
		return errors.New("login: credentials are not configured")
	}

	if err := fillFirst(ctx, page, cfg.Selectors.LoginUser, cfg.Credentials.Username); err != nil {
		return fmt.Errorf("login: username field: %w", err)
	}
	if err := fillFirst(ctx, page, cfg.Selectors.LoginPass, cfg.Credentials.Password); err != nil {
		return fmt.Errorf("login: password field: %w", err)
	}
	if err := clickFirst(ctx, page, cfg.Selectors.LoginSubmit); err != nil {
		return fmt.Errorf("login: submit: %w", err)
	}
	page.Settle(ctx, time.Duration(cfg.SettleMillis)*time.Millisecond)

	// The logged-in marker is required; a timeout here is a hard failure.
	wait := time.Duration(cfg.WaitTimeoutSec) * time.Second
	var lastErr error
	for _, sel := range cfg.Selectors.LoggedIn {
		if err := page.WaitVisible(ctx, sel, wait); err == nil {
			appLog.Info("login succeeded", "user", cfg.Credentials.Username)
			return gotoCalendar(ctx, page, cfg)
		} else {
			lastErr = err
		}
		// Only the first selector gets the full wait; the rest are checked
		// without blocking again.
		wait = time.Second
	}
	return fmt.Errorf("login: no logged-in marker appeared: %w", lastErr)
}

func gotoCalendar(ctx context.Context, page driver.Page, cfg *config.Config) error {
	if cfg.LoginURL == cfg.BaseURL {
		return nil
	}
	if err := page.Navigate(ctx, cfg.BaseURL); err != nil {
		return fmt.Errorf("login: open calendar: %w", err)
	}
	page.Settle(ctx, time.Duration(cfg.SettleMillis)*time.Millisecond)
	return nil
}

func loggedIn(ctx context.Context, page driver.Page, selectors []string) bool {
	for _, sel := range selectors {
		if found, err := page.Exists(ctx, sel); err == nil && found {
			return true
		}
	}
	return false
}

func fillFirst(ctx context.Context, page driver.Page, selectors []string, value string) error {
	for _, sel := range selectors {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		return page.SetValue(ctx, sel, value)
	}
	return errors.New("no matching field")
}

func clickFirst(ctx context.Context, page driver.Page, selectors []string) error {
	for _, sel := range selectors {
		found, err := page.Exists(ctx, sel)
		if err != nil || !found {
			continue
		}
		return page.Click(ctx, sel)
	}
	return errors.New("no matching control")
}
