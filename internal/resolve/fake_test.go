package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"seatcap/internal/config"
)

// fakePage is an in-memory driver.Page for exercising the engine without a
// browser. Tests mutate its state through the onClick/onSetValue hooks to
// simulate the remote app reacting to interactions.
type fakePage struct {
	mu sync.Mutex

	// exists answers Exists and WaitVisible.
	exists map[string]bool

	// texts answers Text per selector; body answers BodyText.
	texts map[string]string
	body  string

	// candidates is returned by the enumeration script.
	candidates []rawCandidate

	// labels answers the control-label script per selector.
	labels map[string]string

	clicks  []string
	presses []string
	values  map[string]string

	onClick    func(sel string)
	onSetValue func(sel, val string)
}

func newFakePage() *fakePage {
	return &fakePage{
		exists: map[string]bool{},
		texts:  map[string]string{},
		labels: map[string]string{},
		values: map[string]string{},
	}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error { return nil }

func (f *fakePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exists[sel] {
		return nil
	}
	return errors.New("not visible: " + sel)
}

func (f *fakePage) Exists(ctx context.Context, sel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists[sel], nil
}

func (f *fakePage) Click(ctx context.Context, sel string) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, sel)
	hook := f.onClick
	f.mu.Unlock()
	if hook != nil {
		hook(sel)
	}
	return nil
}

func (f *fakePage) SetValue(ctx context.Context, sel, value string) error {
	f.mu.Lock()
	f.values[sel] = value
	hook := f.onSetValue
	f.mu.Unlock()
	if hook != nil {
		hook(sel, value)
	}
	return nil
}

func (f *fakePage) Press(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presses = append(f.presses, key)
	return nil
}

func (f *fakePage) Eval(ctx context.Context, js string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Candidate enumeration script.
	if strings.Contains(js, "querySelectorAll") {
		data, err := json.Marshal(f.candidates)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	}

	// Control-label script: match the quoted selector embedded in the js.
	if strings.Contains(js, "aria-label") {
		for sel, label := range f.labels {
			quoted, _ := json.Marshal(sel)
			if strings.Contains(js, string(quoted)) {
				data, _ := json.Marshal(label)
				return json.Unmarshal(data, out)
			}
		}
		return json.Unmarshal([]byte(`""`), out)
	}

	return errors.New("fakePage: unhandled eval: " + js)
}

func (f *fakePage) Text(ctx context.Context, sel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[sel], nil
}

func (f *fakePage) BodyText(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body, nil
}

func (f *fakePage) Settle(ctx context.Context, d time.Duration) {}

func (f *fakePage) Screenshot(ctx context.Context, path string) error { return nil }

func (f *fakePage) setExists(sel string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists[sel] = v
}

func (f *fakePage) clicked(sel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clicks {
		if c == sel {
			return true
		}
	}
	return false
}

// testConfig returns a config tuned for fast tests.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SettleMillis = 1
	cfg.WaitTimeoutSec = 1
	cfg.NavPageBound = 3
	cfg.Normalize()
	return cfg
}
