package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer turns reply markdown into terminal output. Rendered text is cached
// per message hash, so a transcript only pays for new messages on redraw.
type Renderer struct {
	style string
	width int
	tr    *glamour.TermRenderer
	cache map[string]string
}

// NewRenderer creates a Renderer for a glamour standard style name. "auto"
// is resolved against the terminal background here, before any full-screen
// program owns the terminal.
func NewRenderer(style string) *Renderer {
	if style == "" || style == "auto" {
		style = "light"
		if termenv.HasDarkBackground() {
			style = "dark"
		}
	}
	return &Renderer{
		style: style,
		cache: make(map[string]string),
	}
}

// SetWidth sets the wrap width, rebuilding the glamour renderer on change.
func (r *Renderer) SetWidth(width int) error {
	if width < 10 {
		width = 10
	}
	if r.tr != nil && width == r.width {
		return nil
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("could not create markdown renderer: %w", err)
	}

	r.tr = tr
	r.width = width
	r.cache = make(map[string]string)
	return nil
}

// Markdown renders text, keyed by hash. Text that fails to render is
// returned unchanged.
func (r *Renderer) Markdown(hash, text string) string {
	if out, ok := r.cache[hash]; ok && hash != "" {
		return out
	}
	if r.tr == nil {
		if err := r.SetWidth(80); err != nil {
			return text
		}
	}

	out, err := r.tr.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")

	if hash != "" {
		r.cache[hash] = out
	}
	return out
}
