package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/hinshun/vt10x"

	"github.com/user/termbridge/internal/term"
)

// overlay is the bordered terminal window drawn over the status view. It
// owns the screen geometry and the mouse selection; the surface content
// itself lives in the bridge session.
type overlay struct {
	x, y, w, h int

	selecting                bool
	hasSel                   bool
	selStartRow, selStartCol int
	selEndRow, selEndCol     int
}

// layout positions the overlay near-fullscreen with a small margin. Inner
// content dimensions follow from the border.
func (o *overlay) layout(screenW, screenH int) {
	o.x, o.y = 2, 1
	o.w, o.h = screenW-4, screenH-2
	if o.w > screenW {
		o.w = screenW
	}
	if o.h > screenH {
		o.h = screenH
	}
	if o.w < 4 {
		o.x, o.w = 0, screenW
	}
	if o.h < 3 {
		o.y, o.h = 0, screenH
	}
}

// innerSize returns the content geometry inside the border.
func (o *overlay) innerSize() (cols, rows int) {
	return o.w - 2, o.h - 2
}

func (o *overlay) draw(screen tcell.Screen, vt *term.VT, connected bool) {
	if vt == nil || o.w < 2 || o.h < 2 {
		return
	}

	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorTeal)
	drawBorder(screen, o.x, o.y, o.w, o.h, borderStyle)

	title := " terminal "
	if !connected {
		title = " terminal (disconnected) "
	}
	drawText(screen, o.x+2, o.y, min(len(title), o.w-4), title, borderStyle)

	cols, rows := vt.Size()
	innerW, innerH := o.innerSize()
	for row := 0; row < innerH; row++ {
		for col := 0; col < innerW; col++ {
			var g vt10x.Glyph
			if col < cols && row < rows {
				g = vt.Glyph(col, row)
			} else {
				g = vt10x.Glyph{Char: ' ', FG: vt10x.DefaultFG, BG: vt10x.DefaultBG}
			}
			style := glyphStyle(g)
			if o.inSelection(row, col) {
				style = style.Reverse(true)
			}
			screen.SetContent(o.x+1+col, o.y+1+row, g.Char, nil, style)
		}
	}

	cx, cy := vt.Cursor()
	if vt.CursorVisible() && cx >= 0 && cx < innerW && cy >= 0 && cy < innerH {
		screen.ShowCursor(o.x+1+cx, o.y+1+cy)
	} else {
		screen.HideCursor()
	}
}

// handleMouse consumes every mouse event while the overlay is open. A
// primary-button drag selects text; releasing the button publishes the
// selected text to the surface selection.
func (o *overlay) handleMouse(ev *tcell.EventMouse, vt *term.VT) {
	if vt == nil {
		return
	}
	switch {
	case ev.Buttons()&tcell.Button1 != 0:
		row, col, ok := o.mouseToContent(ev, vt)
		if !ok {
			return
		}
		if !o.selecting {
			o.selecting = true
			o.hasSel = true
			o.selStartRow, o.selStartCol = row, col
		}
		o.selEndRow, o.selEndCol = row, col
	case ev.Buttons() == tcell.ButtonNone && o.selecting:
		o.selecting = false
		vt.SetSelection(o.selectionText(vt))
	}
}

func (o *overlay) clearSelection() {
	o.selecting = false
	o.hasSel = false
}

func (o *overlay) mouseToContent(ev *tcell.EventMouse, vt *term.VT) (row, col int, ok bool) {
	mx, my := ev.Position()
	col = mx - (o.x + 1)
	row = my - (o.y + 1)
	cols, rows := vt.Size()
	innerW, innerH := o.innerSize()
	if cols < innerW {
		innerW = cols
	}
	if rows < innerH {
		innerH = rows
	}
	if col < 0 || col >= innerW || row < 0 || row >= innerH {
		return 0, 0, false
	}
	return row, col, true
}

func (o *overlay) normalizedSelection() (sr, sc, er, ec int, ok bool) {
	if !o.hasSel {
		return 0, 0, 0, 0, false
	}
	sr, sc = o.selStartRow, o.selStartCol
	er, ec = o.selEndRow, o.selEndCol
	if er < sr || (er == sr && ec < sc) {
		sr, sc, er, ec = er, ec, sr, sc
	}
	return sr, sc, er, ec, true
}

func (o *overlay) inSelection(row, col int) bool {
	sr, sc, er, ec, ok := o.normalizedSelection()
	if !ok {
		return false
	}
	if row < sr || row > er {
		return false
	}
	if row == sr && col < sc {
		return false
	}
	if row == er && col > ec {
		return false
	}
	return true
}

func (o *overlay) selectionText(vt *term.VT) string {
	sr, sc, er, ec, ok := o.normalizedSelection()
	if !ok {
		return ""
	}
	cols, _ := vt.Size()

	var out strings.Builder
	for row := sr; row <= er; row++ {
		line := []rune(vt.Line(row))
		for len(line) < cols {
			line = append(line, ' ')
		}
		start, end := 0, len(line)
		if row == sr {
			start = sc
		}
		if row == er && ec+1 < end {
			end = ec + 1
		}
		if start > end {
			start = end
		}
		out.WriteString(strings.TrimRight(string(line[start:end]), " "))
		if row < er {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func drawBorder(screen tcell.Screen, x, y, w, h int, style tcell.Style) {
	for cx := x + 1; cx < x+w-1; cx++ {
		screen.SetContent(cx, y, '─', nil, style)
		screen.SetContent(cx, y+h-1, '─', nil, style)
	}
	for cy := y + 1; cy < y+h-1; cy++ {
		screen.SetContent(x, cy, '│', nil, style)
		screen.SetContent(x+w-1, cy, '│', nil, style)
	}
	screen.SetContent(x, y, '┌', nil, style)
	screen.SetContent(x+w-1, y, '┐', nil, style)
	screen.SetContent(x, y+h-1, '└', nil, style)
	screen.SetContent(x+w-1, y+h-1, '┘', nil, style)
}

func glyphStyle(g vt10x.Glyph) tcell.Style {
	style := tcell.StyleDefault
	if fg := vtColor(g.FG); fg != tcell.ColorDefault {
		style = style.Foreground(fg)
	}
	if bg := vtColor(g.BG); bg != tcell.ColorDefault {
		style = style.Background(bg)
	}
	return style
}

func vtColor(c vt10x.Color) tcell.Color {
	switch c {
	case vt10x.DefaultFG, vt10x.DefaultBG, vt10x.DefaultCursor:
		return tcell.ColorDefault
	}
	if c < 256 {
		return tcell.PaletteColor(int(c))
	}
	return tcell.NewHexColor(int32(c))
}
