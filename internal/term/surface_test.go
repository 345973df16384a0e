package term

import "testing"

// TestVTWriteAndLine writes two lines and reads them back row by row.
func TestVTWriteAndLine(t *testing.T) {
	s := NewVT(80, 24)
	defer s.Dispose()

	s.Write([]byte("hello\r\nworld"))

	if got := s.Line(0); got != "hello" {
		t.Errorf("Line(0) = %q, want %q", got, "hello")
	}
	if got := s.Line(1); got != "world" {
		t.Errorf("Line(1) = %q, want %q", got, "world")
	}
	if got := s.Line(2); got != "" {
		t.Errorf("Line(2) = %q, want empty", got)
	}
}

// TestVTReset writes content with attributes, resets, and verifies the
// buffer is empty and the cursor is home again.
func TestVTReset(t *testing.T) {
	s := NewVT(80, 24)
	defer s.Dispose()

	s.Write([]byte("\x1b[31mred text\r\nmore"))
	s.Reset()

	for row := 0; row < 24; row++ {
		if got := s.Line(row); got != "" {
			t.Fatalf("Line(%d) after Reset = %q, want empty", row, got)
		}
	}
	if x, y := s.Cursor(); x != 0 || y != 0 {
		t.Errorf("Cursor() after Reset = (%d, %d), want (0, 0)", x, y)
	}
}

// TestVTCursorAddressing writes a one-based CUP sequence and verifies the
// zero-based cursor the emulator reports.
func TestVTCursorAddressing(t *testing.T) {
	s := NewVT(80, 24)
	defer s.Dispose()

	s.Write([]byte("\x1b[5;10H"))

	if x, y := s.Cursor(); x != 9 || y != 4 {
		t.Errorf("Cursor() = (%d, %d), want (9, 4)", x, y)
	}
}

// TestVTResizeNotifiesOnChange verifies the resize callback fires once per
// geometry change and not for no-op resizes.
func TestVTResizeNotifiesOnChange(t *testing.T) {
	s := NewVT(80, 24)
	defer s.Dispose()

	var calls int
	var gotCols, gotRows int
	s.OnResize(func(cols, rows int) {
		calls++
		gotCols, gotRows = cols, rows
	})

	s.Resize(100, 30)
	s.Resize(100, 30)
	s.FitTo(100, 30)

	if calls != 1 {
		t.Fatalf("resize callback fired %d times, want 1", calls)
	}
	if gotCols != 100 || gotRows != 30 {
		t.Errorf("resize callback got (%d, %d), want (100, 30)", gotCols, gotRows)
	}
	if cols, rows := s.Size(); cols != 100 || rows != 30 {
		t.Errorf("Size() = (%d, %d), want (100, 30)", cols, rows)
	}
}

// TestVTInputEmitsData verifies Input routes through the data callback and
// that empty input is dropped.
func TestVTInputEmitsData(t *testing.T) {
	s := NewVT(80, 24)
	defer s.Dispose()

	var got []string
	s.OnData(func(data string) { got = append(got, data) })

	s.Input("ls -la\r")
	s.Input("")

	if len(got) != 1 || got[0] != "ls -la\r" {
		t.Errorf("data callbacks = %q, want exactly [%q]", got, "ls -la\r")
	}
}

// TestVTSelection round-trips a selection and confirms disposal clears it.
func TestVTSelection(t *testing.T) {
	s := NewVT(80, 24)

	s.SetSelection("picked text")
	if got := s.Selection(); got != "picked text" {
		t.Errorf("Selection() = %q, want %q", got, "picked text")
	}

	s.Dispose()
	if got := s.Selection(); got != "" {
		t.Errorf("Selection() after Dispose = %q, want empty", got)
	}
}

// TestVTDisposedOpsAreNoops disposes a surface twice and verifies that
// writes, input and callbacks all become silent no-ops.
func TestVTDisposedOpsAreNoops(t *testing.T) {
	s := NewVT(80, 24)

	var dataCalls int
	s.OnData(func(string) { dataCalls++ })

	s.Dispose()
	s.Dispose()

	s.Write([]byte("after dispose"))
	s.Input("x")
	s.Resize(10, 5)
	s.Focus()

	if dataCalls != 0 {
		t.Errorf("data callback fired %d times after Dispose, want 0", dataCalls)
	}
	if got := s.Line(0); got != "" {
		t.Errorf("Line(0) after Dispose = %q, want empty", got)
	}
	if s.Focused() {
		t.Error("Focused() after Dispose = true, want false")
	}
	if !s.Disposed() {
		t.Error("Disposed() = false, want true")
	}
}
