package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// LogBuffer is a bounded line buffer usable as an slog output sink. Writes
// may arrive from any goroutine; complete lines are appended, a trailing
// partial line is held back until its newline arrives.
type LogBuffer struct {
	mu       sync.Mutex
	max      int
	lines    []string
	pending  string
	onAppend func()
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 256
	}
	return &LogBuffer{max: maxLines}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.pending += string(p)
	appended := false
	for {
		i := strings.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(b.pending[:i], "\r")
		b.pending = b.pending[i+1:]
		b.lines = append(b.lines, line)
		appended = true
	}
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append([]string(nil), b.lines[over:]...)
	}
	notify := b.onAppend
	b.mu.Unlock()

	if appended && notify != nil {
		notify()
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// OnAppend registers a callback fired after every write that completed at
// least one line.
func (b *LogBuffer) OnAppend(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAppend = fn
}

// statusView is the background screen: a one line header, a separator, and
// the scrollable log window underneath.
type statusView struct {
	mu        sync.Mutex
	buf       *LogBuffer
	scroll    int
	connected bool
}

func newStatusView(buf *LogBuffer) *statusView {
	return &statusView{buf: buf}
}

func (v *statusView) setConnected(connected bool) {
	v.mu.Lock()
	v.connected = connected
	v.mu.Unlock()
}

// scrollBy moves the log window; positive is towards older lines. Zero
// offset follows the tail. The offset is bounded by the buffered line
// count here and clamped against the window height at draw time.
func (v *statusView) scrollBy(delta int) {
	limit := v.buf.Len()
	v.mu.Lock()
	v.scroll += delta
	if v.scroll < 0 {
		v.scroll = 0
	}
	if v.scroll > limit {
		v.scroll = limit
	}
	v.mu.Unlock()
}

func (v *statusView) scrollToTail() {
	v.mu.Lock()
	v.scroll = 0
	v.mu.Unlock()
}

func (v *statusView) scrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scroll
}

func (v *statusView) draw(screen tcell.Screen, width, height int, overlayOpen bool) {
	if width <= 0 || height <= 0 {
		return
	}

	v.mu.Lock()
	connected := v.connected
	scroll := v.scroll
	v.mu.Unlock()

	conn := "disconnected"
	if connected {
		conn = "connected"
	}
	state := "closed"
	if overlayOpen {
		state = "open"
	}
	header := fmt.Sprintf(" termbridge  [%s]  terminal %s  |  ctrl+` terminal  ctrl+q quit", conn, state)
	headerStyle := tcell.StyleDefault.Reverse(true)
	drawText(screen, 0, 0, width, header, headerStyle)

	if height < 2 {
		return
	}
	sepStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for x := 0; x < width; x++ {
		screen.SetContent(x, 1, '─', nil, sepStyle)
	}

	logHeight := height - 2
	if logHeight <= 0 {
		return
	}
	lines := v.buf.Lines()

	maxScroll := len(lines) - logHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if scroll > maxScroll {
		scroll = maxScroll
	}

	// Window ends scroll lines above the tail.
	end := len(lines) - scroll
	start := end - logHeight
	if start < 0 {
		start = 0
	}
	row := 2
	for _, line := range lines[start:end] {
		drawText(screen, 0, row, width, line, tcell.StyleDefault)
		row++
	}

	if scroll > 0 {
		indicator := fmt.Sprintf(" ↑ %d ", scroll)
		n := len([]rune(indicator))
		drawText(screen, width-n, 1, n, indicator, tcell.StyleDefault.Reverse(true))
	}
}

// drawText writes s starting at (x, y), clipping at maxWidth columns and
// padding the remainder of the row with spaces.
func drawText(screen tcell.Screen, x, y, maxWidth int, s string, style tcell.Style) {
	col := x
	for _, r := range s {
		if col >= x+maxWidth {
			return
		}
		if col >= 0 {
			screen.SetContent(col, y, r, nil, style)
		}
		col++
	}
	for ; col < x+maxWidth; col++ {
		screen.SetContent(col, y, ' ', nil, style)
	}
}
