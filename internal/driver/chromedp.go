package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	appLog "seatcap/internal/log"
)

// Viewport and timing defaults for the remote scheduling app.
const (
	DefaultWidth      = 1366
	DefaultHeight     = 900
	DefaultOpTimeout  = 10 * time.Second
	screenshotQuality = 90
)

// SessionOptions configures a chromedp-backed browser session.
type SessionOptions struct {
	// Headless runs Chromium without a display.
	Headless bool

	// Width / Height are the emulated viewport dimensions. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// OpTimeout bounds any single page operation whose caller context has
	// no deadline of its own. If zero, DefaultOpTimeout is used.
	OpTimeout time.Duration
}

// Session is a chromedp-backed Page. One Session owns one browser tab for
// the lifetime of one resolution attempt; Close must always be called, and
// tearing the Session down is the only way to discard partial progress.
type Session struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	opTimeout   time.Duration
}

var _ Page = (*Session)(nil)

// NewSession launches a Chromium instance and prepares a single tab.
// Cancelling parentCtx tears the whole session down.
func NewSession(parentCtx context.Context, opts SessionOptions) (*Session, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		opTimeout:   opts.OpTimeout,
	}

	if err := chromedp.Run(ctx, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height))); err != nil {
		s.Close()
		return nil, fmt.Errorf("driver: start session: %w", err)
	}

	appLog.Debug("browser session started", "headless", opts.Headless,
		"width", opts.Width, "height", opts.Height)
	return s, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.cancelCtx()
	s.cancelAlloc()
}

// run executes chromedp actions against the session tab, bounded by the
// caller's deadline when it has one, otherwise by the session op timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	var cancel context.CancelFunc
	if d, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, d)
	} else {
		runCtx, cancel = context.WithTimeout(runCtx, s.opTimeout)
	}
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("driver: navigate %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	// The chromedp context must descend from the session tab, so the
	// caller's cancellation is forwarded instead of inherited.
	waitCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("driver: wait visible %q: %w", selector, err)
	}
	return nil
}

func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	js := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	if err := s.Eval(ctx, js, &found); err != nil {
		return false, err
	}
	return found, nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("driver: click %q: %w", selector, err)
	}
	return nil
}

func (s *Session) SetValue(ctx context.Context, selector, value string) error {
	// Set the value property directly and dispatch bubbling input/change
	// events so framework-bound inputs observe the write.
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.value = %s;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsString(selector), jsString(value))

	var ok bool
	if err := s.Eval(ctx, js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("driver: set value: no element matches %q", selector)
	}
	return nil
}

func (s *Session) Press(ctx context.Context, key string) error {
	seq, ok := keySequences[key]
	if !ok {
		return fmt.Errorf("driver: unsupported key %q", key)
	}
	if err := s.run(ctx, chromedp.KeyEvent(seq)); err != nil {
		return fmt.Errorf("driver: press %s: %w", key, err)
	}
	return nil
}

// keySequences maps friendly key names to chromedp/kb sequences.
var keySequences = map[string]string{
	"Escape": kb.Escape,
	"Enter":  kb.Enter,
	"Tab":    kb.Tab,
}

func (s *Session) Eval(ctx context.Context, js string, out any) error {
	var action chromedp.Action
	if out != nil {
		action = chromedp.Evaluate(js, out)
	} else {
		action = chromedp.Evaluate(js, nil)
	}
	if err := s.run(ctx, action); err != nil {
		return fmt.Errorf("driver: eval: %w", err)
	}
	return nil
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? (el.innerText || el.textContent || '') : '';
	})()`, jsString(selector))

	var text string
	if err := s.Eval(ctx, js, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.Eval(ctx, `document.body ? document.body.innerText : ''`, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) Settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	var png []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&png, screenshotQuality)); err != nil {
		return fmt.Errorf("driver: screenshot: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("driver: write screenshot: %w", err)
	}
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
