// Package driver abstracts the programmable browser behind a small Page
// capability set: element lookup by structural selector, text extraction,
// click/type/keyboard primitives, settle waiting, and in-page script
// evaluation. Everything above this package depends only on Page, never on
// a specific automation product.
package driver

import (
	"context"
	"time"
)

// Page is one exclusively owned browser tab. A Page must never be shared
// between concurrent resolution attempts: its DOM state (open overlay,
// current calendar view) is implicit shared mutable state with no locking
// of its own.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until selector is visible or timeout elapses.
	// Timeout here is a hard failure; callers use it for required elements
	// only.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Exists reports whether selector currently matches, without waiting.
	Exists(ctx context.Context, selector string) (bool, error)

	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error

	// SetValue sets the value of an input element and dispatches bubbling
	// input and change events, so framework-bound inputs pick it up.
	SetValue(ctx context.Context, selector, value string) error

	// Press sends a keyboard key to the focused element ("Escape", "Enter").
	Press(ctx context.Context, key string) error

	// Eval runs a JavaScript expression in the page and unmarshals its
	// JSON-serializable result into out (out may be nil).
	Eval(ctx context.Context, js string, out any) error

	// Text returns the visible text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)

	// BodyText returns the visible text of the whole document body.
	BodyText(ctx context.Context) (string, error)

	// Settle pauses briefly to let the page react to the last interaction.
	// Best effort: it never fails, and an expired ctx just ends the pause.
	Settle(ctx context.Context, d time.Duration)

	// Screenshot writes a full-page PNG to path. Debug aid only.
	Screenshot(ctx context.Context, path string) error
}
