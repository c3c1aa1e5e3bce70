package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders node markdown to ANSI using
// glamour, auto-detecting light/dark backgrounds. If the renderer cannot be
// constructed (no TTY), text passes through unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
