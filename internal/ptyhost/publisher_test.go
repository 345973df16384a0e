package ptyhost

import (
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu    sync.Mutex
	lines []string
	x, y  int
}

func (f *fakeSource) Snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines
}

func (f *fakeSource) Cursor() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.x, f.y
}

type flushRecorder struct {
	mu    sync.Mutex
	count int
	lines []string
	x, y  int
}

func (r *flushRecorder) record(lines []string, x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.lines = lines
	r.x, r.y = x, y
}

func (r *flushRecorder) flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// waitFlushes polls until the recorder has seen want flushes.
func waitFlushes(t *testing.T, r *flushRecorder, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.flushes() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("saw %d flushes, want %d", r.flushes(), want)
}

// TestPublisherCoalescesBursts fires a burst of notifications and verifies
// they collapse into a single flush carrying the source's screen and cursor.
func TestPublisherCoalescesBursts(t *testing.T) {
	rec := &flushRecorder{}
	pub := NewPublisher(30*time.Millisecond, rec.record)
	defer pub.Stop()

	pub.Watch(&fakeSource{lines: []string{"one", "two"}, x: 3, y: 1})

	for i := 0; i < 10; i++ {
		pub.Notify()
	}
	waitFlushes(t, rec, 1)

	// The window has passed and no new notification arrived, so the count
	// must hold.
	time.Sleep(60 * time.Millisecond)
	if got := rec.flushes(); got != 1 {
		t.Fatalf("flushes after burst = %d, want 1", got)
	}

	rec.mu.Lock()
	lines, x, y := rec.lines, rec.x, rec.y
	rec.mu.Unlock()
	if len(lines) != 2 || lines[0] != "one" || x != 3 || y != 1 {
		t.Errorf("flush carried lines=%v cursor=(%d,%d)", lines, x, y)
	}

	pub.Notify()
	waitFlushes(t, rec, 2)
}

// TestPublisherFlushCancelsTimer verifies an explicit Flush broadcasts at
// once and cancels the armed timer so no duplicate follows.
func TestPublisherFlushCancelsTimer(t *testing.T) {
	rec := &flushRecorder{}
	pub := NewPublisher(50*time.Millisecond, rec.record)
	defer pub.Stop()

	pub.Watch(&fakeSource{lines: []string{"final"}})

	pub.Notify()
	pub.Flush()
	if got := rec.flushes(); got != 1 {
		t.Fatalf("flushes after Flush = %d, want 1", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := rec.flushes(); got != 1 {
		t.Fatalf("flushes after timer window = %d, want 1", got)
	}
}

// TestPublisherStopDropsPending verifies notifications after Stop never
// flush.
func TestPublisherStopDropsPending(t *testing.T) {
	rec := &flushRecorder{}
	pub := NewPublisher(10*time.Millisecond, rec.record)

	pub.Watch(&fakeSource{lines: []string{"x"}})
	pub.Stop()
	pub.Notify()

	time.Sleep(50 * time.Millisecond)
	if got := rec.flushes(); got != 0 {
		t.Fatalf("flushes after Stop = %d, want 0", got)
	}
}

// TestPublisherWithoutSource verifies notifying an unwatched publisher is a
// no-op rather than a panic.
func TestPublisherWithoutSource(t *testing.T) {
	rec := &flushRecorder{}
	pub := NewPublisher(10*time.Millisecond, rec.record)
	defer pub.Stop()

	pub.Notify()
	pub.Flush()

	time.Sleep(30 * time.Millisecond)
	if got := rec.flushes(); got != 0 {
		t.Fatalf("flushes without source = %d, want 0", got)
	}
}
