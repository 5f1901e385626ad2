// Package capture produces candidate images: rendered screenshots of live
// pages.
package capture

import (
	"context"
)

type Options struct {
	// Headers are extra HTTP headers sent with every page request.
	Headers map[string]string
	// MaskSelectors are CSS selectors whose elements are blacked out before
	// the screenshot, to hide volatile regions (ads, clocks, feeds).
	MaskSelectors []string
}

type Capturer interface {
	// Capture navigates to url and returns the screenshot bytes.
	Capture(ctx context.Context, url string, options Options) ([]byte, error)
}
