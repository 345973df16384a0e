package bridge

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/user/termbridge/internal/term"
)

// Reconciler replays server-pushed output snapshots and cursor updates
// onto a render surface. Events are applied strictly in arrival order; a
// cursor update delivered ahead of the snapshot it was computed against
// lags visually until the next snapshot, which is accepted rather than
// corrected by buffering.
type Reconciler struct {
	surface term.Surface
}

func NewReconciler(surface term.Surface) *Reconciler {
	return &Reconciler{surface: surface}
}

// ApplySnapshot replaces the entire rendered buffer with the given lines.
// The surface is reset first, restoring default attributes and scroll
// state, so stale content can never survive partial application.
func (r *Reconciler) ApplySnapshot(lines []string) {
	r.surface.Reset()
	if len(lines) == 0 {
		return
	}

	var b strings.Builder
	last := len(lines) - 1
	for _, line := range lines[:last] {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	// The final line gets no line break; a trailing whitespace run on it
	// collapses to a single space.
	b.WriteString(collapseTrailingWhitespace(lines[last]))
	r.surface.Write([]byte(b.String()))
}

// ApplyCursor positions the cursor at the zero-based remote coordinates,
// translated to the one-based addressing the control sequence expects.
func (r *Reconciler) ApplyCursor(x, y int) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	r.surface.Write([]byte(fmt.Sprintf("\x1b[%d;%dH", y+1, x+1)))
}

func collapseTrailingWhitespace(s string) string {
	trimmed := strings.TrimRightFunc(s, unicode.IsSpace)
	if len(trimmed) == len(s) {
		return s
	}
	return trimmed + " "
}
