package web

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatcap/internal/config"
	"seatcap/internal/driver"
)

// scriptedPage simulates the remote scheduling app across a whole job:
// login form, calendar with one matching event, overlay, edit form, and
// capacity save.
type scriptedPage struct {
	mu      sync.Mutex
	exists  map[string]bool
	texts   map[string]string
	body    string
	values  map[string]string
	clicks  []string
	presses []string
}

func newScriptedPage() *scriptedPage {
	p := &scriptedPage{
		exists: map[string]bool{},
		texts:  map[string]string{},
		values: map[string]string{},
	}
	// Login form is present from the start.
	p.exists[`input[name="email"]`] = true
	p.exists[`input[name="password"]`] = true
	p.exists[`button[type="submit"]`] = true
	return p
}

func (p *scriptedPage) Navigate(ctx context.Context, url string) error { return nil }

func (p *scriptedPage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exists[sel] {
		return nil
	}
	return errors.New("not visible: " + sel)
}

func (p *scriptedPage) Exists(ctx context.Context, sel string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exists[sel], nil
}

func (p *scriptedPage) Click(ctx context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, sel)

	switch sel {
	case `button[type="submit"]`:
		// Login succeeds; the calendar view renders the target date with
		// one event.
		p.exists[`a[href*="logout"]`] = true
		p.exists[`[data-date*="2025-03-10"]`] = true
	case `[data-seatcap-h="0"]`:
		p.exists[`.modal.show`] = true
		p.texts[`.modal.show`] = "Edit class\n07:00 AM - 07:50 AM Reformer\nCapacity: 10"
		p.exists[`a[href*="edit"]`] = true
	case `a[href*="edit"]`:
		p.exists[`form`] = true
		p.texts[`form`] = "Editar clase 07:00 AM Reformer Capacidad 10"
		p.body = "Monday 2025-03-10 schedule"
		p.exists[`input[name*="capacity"]`] = true
	}
	return nil
}

func (p *scriptedPage) SetValue(ctx context.Context, sel, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[sel] = value
	return nil
}

func (p *scriptedPage) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presses = append(p.presses, key)
	return nil
}

func (p *scriptedPage) Eval(ctx context.Context, js string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case strings.Contains(js, "data-seatcap-save"):
		// Save control lookup: succeed once the edit form is open.
		handle := ""
		if p.exists[`form`] {
			handle = "0"
		}
		return unmarshalInto(handle, out)
	case strings.Contains(js, "dateMatch"):
		// Event enumeration for the calendar view.
		type raw struct {
			H         string `json:"h"`
			Text      string `json:"text"`
			DateMatch bool   `json:"dateMatch"`
		}
		var events []raw
		if p.exists[`[data-date*="2025-03-10"]`] {
			events = []raw{{H: "0", Text: "07:00 AM - 07:50 AM Reformer", DateMatch: true}}
		}
		return unmarshalInto(events, out)
	case strings.Contains(js, "aria-label"):
		return unmarshalInto("", out)
	}
	return errors.New("scriptedPage: unhandled eval")
}

func unmarshalInto(v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *scriptedPage) Text(ctx context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[sel], nil
}

func (p *scriptedPage) BodyText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body, nil
}

func (p *scriptedPage) Settle(ctx context.Context, d time.Duration) {}

func (p *scriptedPage) Screenshot(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("png"), 0o644)
}

func engineConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "https://studio.example/calendar"
	cfg.Credentials = config.CredentialsConfig{Username: "owner@studio.example", Password: "secret"}
	cfg.ArtifactDir = t.TempDir()
	cfg.SettleMillis = 1
	cfg.WaitTimeoutSec = 1
	cfg.Normalize()
	return cfg
}

func testEngine(t *testing.T, cfg *config.Config, page driver.Page, pageErr error) *Engine {
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	e.newPage = func(ctx context.Context) (driver.Page, func(), error) {
		if pageErr != nil {
			return nil, nil, pageErr
		}
		return page, func() {}, nil
	}
	return e
}

func TestEngineRunAppliesCapacity(t *testing.T) {
	cfg := engineConfig(t)
	page := newScriptedPage()
	e := testEngine(t, cfg, page, nil)

	res := e.Run(context.Background(), JobRequest{
		Date: "2025-03-10", Time: "07:00", Capacity: 14,
	})

	require.True(t, res.OK, "detail: %s", res.Detail)
	assert.Equal(t, "2025-03-10", res.Date)
	assert.Equal(t, "14", page.values[`input[name*="capacity"]`])
	assert.Contains(t, page.clicks, `[data-seatcap-save="0"]`)
	assert.FileExists(t, res.AuditPath)
}

func TestEngineRunValidatesRequest(t *testing.T) {
	cfg := engineConfig(t)
	e := testEngine(t, cfg, nil, errors.New("unused"))

	res := e.Run(context.Background(), JobRequest{Date: "2025-03-10", Capacity: 10})
	assert.False(t, res.OK)
	assert.Equal(t, "bad_request", res.ErrorKind)

	res = e.Run(context.Background(), JobRequest{Date: "2025-03-10", Time: "07:00", Capacity: -1})
	assert.Equal(t, "bad_request", res.ErrorKind)

	res = e.Run(context.Background(), JobRequest{Time: "07:00", Capacity: 10})
	assert.Equal(t, "bad_request", res.ErrorKind, "date or rrule is required")
}

func TestEngineRunSessionFailure(t *testing.T) {
	cfg := engineConfig(t)
	e := testEngine(t, cfg, nil, errors.New("chromium exploded"))

	res := e.Run(context.Background(), JobRequest{Date: "2025-03-10", Time: "07:00", Capacity: 10})
	assert.False(t, res.OK)
	assert.Equal(t, "session_failed", res.ErrorKind)
}

func TestEngineRunLoginFailure(t *testing.T) {
	cfg := engineConfig(t)
	page := newScriptedPage()
	// No login fields at all: authentication cannot proceed.
	page.exists = map[string]bool{}
	e := testEngine(t, cfg, page, nil)

	res := e.Run(context.Background(), JobRequest{Date: "2025-03-10", Time: "07:00", Capacity: 10})
	assert.False(t, res.OK)
	assert.Equal(t, "login_failed", res.ErrorKind)
}

func TestEngineRunReportsNavigationFailure(t *testing.T) {
	cfg := engineConfig(t)
	page := newScriptedPage()
	e := testEngine(t, cfg, page, nil)

	// Different date: navigation succeeds only for 2025-03-10 in the
	// script, so the paging walk exhausts its bound.
	cfg.NavPageBound = 1
	res := e.Run(context.Background(), JobRequest{Date: "2024-06-01", Time: "07:00", Capacity: 10})
	assert.False(t, res.OK)
	assert.Equal(t, "navigation_failure", res.ErrorKind)
}

func TestEngineRunRRuleTarget(t *testing.T) {
	cfg := engineConfig(t)
	page := newScriptedPage()
	e := testEngine(t, cfg, page, nil)

	// Any weekly Monday rule lands on some Monday; the scripted calendar
	// only renders 2025-03-10, so unless that is the next Monday the job
	// fails with a resolution kind rather than bad_request. Either way the
	// rrule path must produce a concrete date.
	res := e.Run(context.Background(), JobRequest{RRule: "FREQ=WEEKLY;BYDAY=MO", Time: "07:00", Capacity: 10})
	assert.NotEmpty(t, res.Date)
	assert.NotEqual(t, "bad_request", res.ErrorKind)
}
