package bridge

import (
	"testing"

	"github.com/user/termbridge/internal/term"
)

// TestApplySnapshotRendersLines applies a snapshot to a real surface and
// reads every line back in order.
func TestApplySnapshotRendersLines(t *testing.T) {
	surface := term.NewVT(80, 24)
	defer surface.Dispose()
	rec := NewReconciler(surface)

	rec.ApplySnapshot([]string{"alpha", "beta", "gamma"})

	want := []string{"alpha", "beta", "gamma", ""}
	for row, w := range want {
		if got := surface.Line(row); got != w {
			t.Errorf("Line(%d) = %q, want %q", row, got, w)
		}
	}
}

// TestApplySnapshotReplacesPriorContent verifies a shorter snapshot leaves
// nothing of a longer predecessor behind.
func TestApplySnapshotReplacesPriorContent(t *testing.T) {
	surface := term.NewVT(80, 24)
	defer surface.Dispose()
	rec := NewReconciler(surface)

	rec.ApplySnapshot([]string{"one", "two", "three", "four", "five"})
	rec.ApplySnapshot([]string{"fresh"})

	if got := surface.Line(0); got != "fresh" {
		t.Errorf("Line(0) = %q, want %q", got, "fresh")
	}
	for row := 1; row < 5; row++ {
		if got := surface.Line(row); got != "" {
			t.Errorf("Line(%d) = %q, want empty after replacement", row, got)
		}
	}
}

// TestApplySnapshotIdempotent applies the same snapshot twice and expects
// an identical buffer both times.
func TestApplySnapshotIdempotent(t *testing.T) {
	surface := term.NewVT(80, 24)
	defer surface.Dispose()
	rec := NewReconciler(surface)

	snapshot := []string{"$ ls", "main.go  go.mod", "$"}

	rec.ApplySnapshot(snapshot)
	first := surface.Lines()
	rec.ApplySnapshot(snapshot)
	second := surface.Lines()

	if len(first) != len(second) {
		t.Fatalf("buffer row count changed: %d then %d", len(first), len(second))
	}
	for row := range first {
		if first[row] != second[row] {
			t.Errorf("row %d changed across applications: %q then %q", row, first[row], second[row])
		}
	}
	if first[0] != "$ ls" {
		t.Errorf("row 0 = %q, want %q", first[0], "$ ls")
	}
}

// TestApplySnapshotWriteShape captures the exact byte stream: every line
// but the last is followed by CRLF, the last carries no break and its
// trailing whitespace collapses to a single space.
func TestApplySnapshotWriteShape(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"trailing run collapses", []string{"ab", "cd   "}, "ab\r\ncd "},
		{"no trailing whitespace unchanged", []string{"ab", "cd"}, "ab\r\ncd"},
		{"single line", []string{"only  "}, "only "},
		{"tabs collapse too", []string{"x\t\t"}, "x "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface(80, 24)
			rec := NewReconciler(surface)

			rec.ApplySnapshot(tt.lines)

			if surface.resets != 1 {
				t.Errorf("resets = %d, want 1", surface.resets)
			}
			if len(surface.writes) != 1 || surface.writes[0] != tt.want {
				t.Errorf("writes = %q, want exactly [%q]", surface.writes, tt.want)
			}
		})
	}
}

// TestApplySnapshotEmpty resets without writing.
func TestApplySnapshotEmpty(t *testing.T) {
	surface := newFakeSurface(80, 24)
	rec := NewReconciler(surface)

	rec.ApplySnapshot(nil)

	if surface.resets != 1 {
		t.Errorf("resets = %d, want 1", surface.resets)
	}
	if len(surface.writes) != 0 {
		t.Errorf("writes = %q, want none", surface.writes)
	}
}

// TestApplyCursorOneBased checks both the emitted control sequence and the
// position a real emulator lands on.
func TestApplyCursorOneBased(t *testing.T) {
	fake := newFakeSurface(80, 24)
	NewReconciler(fake).ApplyCursor(9, 4)
	if len(fake.writes) != 1 || fake.writes[0] != "\x1b[5;10H" {
		t.Errorf("writes = %q, want [%q]", fake.writes, "\x1b[5;10H")
	}

	surface := term.NewVT(80, 24)
	defer surface.Dispose()
	rec := NewReconciler(surface)

	rec.ApplyCursor(9, 4)
	if x, y := surface.Cursor(); x != 9 || y != 4 {
		t.Errorf("Cursor() = (%d, %d), want (9, 4)", x, y)
	}

	rec.ApplyCursor(0, 0)
	if x, y := surface.Cursor(); x != 0 || y != 0 {
		t.Errorf("Cursor() = (%d, %d), want (0, 0)", x, y)
	}
}

func TestCollapseTrailingWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"abc ", "abc "},
		{"abc    ", "abc "},
		{"   ", " "},
		{"a\t \t", "a "},
	}
	for _, tt := range tests {
		if got := collapseTrailingWhitespace(tt.in); got != tt.want {
			t.Errorf("collapseTrailingWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
