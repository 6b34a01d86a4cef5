package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown for terminals.
// It uses the auto style, which picks a theme matching the terminal background.
func NewRenderer(width int) func(string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)

	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}
