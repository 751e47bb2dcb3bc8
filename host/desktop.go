package host

import (
	"fmt"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
)

// Clipboard writes to the system clipboard.
type Clipboard struct{}

// WriteText replaces the clipboard content with text.
func (Clipboard) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}

	return nil
}

// Browser opens URIs in the default web browser.
type Browser struct{}

// OpenExternal opens uri and reports whether the browser
// could be launched.
func (Browser) OpenExternal(uri string) bool {
	if err := browser.OpenURL(uri); err != nil {
		slog.Warn(
			"cannot open browser",
			"url", uri,
			"error", err,
		)

		return false
	}

	return true
}
