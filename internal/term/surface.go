package term

import (
	"strings"
	"sync"

	"github.com/hinshun/vt10x"
)

// Surface renders terminal control bytes into a visible buffer and reports
// input and geometry changes back through callbacks. Every operation on a
// disposed Surface is a silent no-op.
type Surface interface {
	// Write feeds control bytes into the renderer.
	Write(p []byte)
	// Reset clears the buffer and restores default attributes and scroll
	// state, not merely the visible text.
	Reset()
	// Resize changes the visible geometry.
	Resize(cols, rows int)
	Size() (cols, rows int)
	Cursor() (x, y int)
	// Line returns the rendered text of one row, trailing blanks trimmed.
	Line(row int) string
	Selection() string
	SetSelection(text string)
	Focus()
	// Input emits data through the native data callback, the same path a
	// key processed by the renderer itself would take.
	Input(data string)
	OnData(fn func(data string))
	OnResize(fn func(cols, rows int))
	Dispose()
}

// VT is a Surface backed by an in-process vt10x terminal emulator.
type VT struct {
	mu        sync.Mutex
	vt        vt10x.Terminal
	cols      int
	rows      int
	selection string
	focused   bool
	disposed  bool
	onData    func(string)
	onResize  func(cols, rows int)
}

func NewVT(cols, rows int) *VT {
	if cols < 2 {
		cols = 2
	}
	if rows < 1 {
		rows = 1
	}
	return &VT{
		vt:   vt10x.New(vt10x.WithSize(cols, rows)),
		cols: cols,
		rows: rows,
	}
}

func (s *VT) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || len(p) == 0 {
		return
	}
	s.vt.Write(p)
}

// Reset rebuilds the emulator with the current geometry, dropping all
// buffer content, attributes and scroll state.
func (s *VT) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.vt = vt10x.New(vt10x.WithSize(s.cols, s.rows))
}

func (s *VT) Resize(cols, rows int) {
	s.mu.Lock()
	if s.disposed || cols < 1 || rows < 1 || (cols == s.cols && rows == s.rows) {
		s.mu.Unlock()
		return
	}
	s.cols, s.rows = cols, rows
	s.vt.Resize(cols, rows)
	fn := s.onResize
	s.mu.Unlock()
	if fn != nil {
		fn(cols, rows)
	}
}

// FitTo computes the geometry filling a container of the given cell
// dimensions and applies it. The resize callback fires only when the
// geometry actually changed.
func (s *VT) FitTo(width, height int) {
	cols, rows := width, height
	if cols < 2 {
		cols = 2
	}
	if rows < 1 {
		rows = 1
	}
	s.Resize(cols, rows)
}

func (s *VT) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

func (s *VT) Cursor() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return 0, 0
	}
	c := s.vt.Cursor()
	return c.X, c.Y
}

func (s *VT) CursorVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}
	return s.vt.CursorVisible()
}

func (s *VT) Line(row int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || row < 0 || row >= s.rows {
		return ""
	}
	return s.lineLocked(row)
}

// Lines returns the whole visible buffer, one string per row.
func (s *VT) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	lines := make([]string, s.rows)
	for row := 0; row < s.rows; row++ {
		lines[row] = s.lineLocked(row)
	}
	return lines
}

func (s *VT) lineLocked(row int) string {
	var b strings.Builder
	for col := 0; col < s.cols; col++ {
		c := s.vt.Cell(col, row)
		if c.Char == 0 {
			b.WriteRune(' ')
		} else {
			b.WriteRune(c.Char)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Glyph exposes one emulator cell with its attributes for callers that
// render the buffer themselves.
func (s *VT) Glyph(col, row int) vt10x.Glyph {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return vt10x.Glyph{Char: ' ', FG: vt10x.DefaultFG, BG: vt10x.DefaultBG}
	}
	g := s.vt.Cell(col, row)
	if g.Char == 0 {
		g.Char = ' '
	}
	return g
}

func (s *VT) Selection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ""
	}
	return s.selection
}

func (s *VT) SetSelection(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.selection = text
}

func (s *VT) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.focused = true
}

func (s *VT) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = false
}

func (s *VT) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused && !s.disposed
}

func (s *VT) Input(data string) {
	s.mu.Lock()
	if s.disposed || data == "" {
		s.mu.Unlock()
		return
	}
	fn := s.onData
	s.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (s *VT) OnData(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.onData = fn
}

func (s *VT) OnResize(fn func(cols, rows int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.onResize = fn
}

// Dispose releases the surface. It is safe to call more than once; every
// later operation becomes a no-op.
func (s *VT) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.onData = nil
	s.onResize = nil
	s.selection = ""
	s.focused = false
}

func (s *VT) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
