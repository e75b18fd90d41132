package dub

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/capvox/capvox/caption"
)

// Renderer is the read-side subtitle overlay: a pure projection of the
// active caption onto styled text. It keeps no queue and no schedule,
// so it can be enabled or disabled independently of speech dispatch.
type Renderer struct {
	mu      sync.RWMutex
	width   int
	current string
	style   lipgloss.Style
}

// NewRenderer creates a renderer wrapping captions at the given width.
func NewRenderer(width int) *Renderer {
	if width < 10 {
		width = 10
	}
	return &Renderer{
		width: width,
		style: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.AdaptiveColor{Light: "235", Dark: "252"}).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "236"}),
	}
}

// Show sets the overlay to the given segment's text.
func (r *Renderer) Show(seg caption.Segment) {
	r.mu.Lock()
	r.current = seg.Text
	r.mu.Unlock()
}

// Clear empties the overlay.
func (r *Renderer) Clear() {
	r.mu.Lock()
	r.current = ""
	r.mu.Unlock()
}

// Active reports whether a caption is currently shown.
func (r *Renderer) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != ""
}

// Text returns the raw caption text currently shown.
func (r *Renderer) Text() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetWidth changes the wrap width, e.g. on terminal resize.
func (r *Renderer) SetWidth(width int) {
	if width < 10 {
		width = 10
	}
	r.mu.Lock()
	r.width = width
	r.mu.Unlock()
}

// View renders the overlay, or an empty string when no caption is
// active. Lines are word-wrapped to the overlay width and centered by
// display width, which keeps CJK and wide runes aligned.
func (r *Renderer) View() string {
	r.mu.RLock()
	text, width := r.current, r.width
	r.mu.RUnlock()

	if text == "" {
		return ""
	}

	boxWidth := width - 2
	if w := runewidth.StringWidth(text); w < boxWidth {
		boxWidth = w
	}
	wrapped := wordwrap.String(text, boxWidth)
	return r.style.Render(lipgloss.PlaceHorizontal(boxWidth, lipgloss.Center, wrapped))
}
