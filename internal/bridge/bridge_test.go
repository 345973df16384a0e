package bridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/termbridge/internal/channel"
	"github.com/user/termbridge/internal/protocol"
	"github.com/user/termbridge/internal/term"
)

var errClipboardDenied = errors.New("clipboard access denied")

// fakeChannel reuses the real handler registry and records emissions so
// tests can drive transport transitions and inspect outbound traffic.
type fakeChannel struct {
	reg       channel.Registry
	mu        sync.Mutex
	connected bool
	emitted   []emittedEvent
}

type emittedEvent struct {
	event   string
	payload any
}

func newFakeChannel() *fakeChannel { return &fakeChannel{} }

func (f *fakeChannel) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return channel.ErrNotConnected
	}
	f.emitted = append(f.emitted, emittedEvent{event: event, payload: payload})
	return nil
}

func (f *fakeChannel) On(event string, fn channel.Handler) *channel.Subscription {
	return f.reg.Add(event, fn)
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) connect() {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.reg.Dispatch(protocol.EventConnect, nil)
}

func (f *fakeChannel) disconnect() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.reg.Dispatch(protocol.EventDisconnect, nil)
}

func (f *fakeChannel) push(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	f.reg.Dispatch(event, data)
}

func (f *fakeChannel) events(event string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.emitted {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeSurface records every call so lifecycle and router behavior can be
// asserted call by call.
type fakeSurface struct {
	mu         sync.Mutex
	writes     []string
	resets     int
	disposes   int
	focuses    int
	selection  string
	cols, rows int
	onData     func(string)
	onResize   func(cols, rows int)
}

func newFakeSurface(cols, rows int) *fakeSurface {
	return &fakeSurface{cols: cols, rows: rows}
}

func (s *fakeSurface) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, string(p))
}

func (s *fakeSurface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeSurface) Resize(cols, rows int) {
	s.mu.Lock()
	changed := cols != s.cols || rows != s.rows
	s.cols, s.rows = cols, rows
	fn := s.onResize
	s.mu.Unlock()
	if changed && fn != nil {
		fn(cols, rows)
	}
}

func (s *fakeSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

func (s *fakeSurface) Cursor() (int, int) { return 0, 0 }

func (s *fakeSurface) Line(int) string { return "" }

func (s *fakeSurface) Selection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *fakeSurface) SetSelection(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = text
}

func (s *fakeSurface) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focuses++
}

func (s *fakeSurface) Input(data string) {
	s.mu.Lock()
	fn := s.onData
	s.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (s *fakeSurface) OnData(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onData = fn
}

func (s *fakeSurface) OnResize(fn func(cols, rows int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResize = fn
}

func (s *fakeSurface) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposes++
	s.onData = nil
	s.onResize = nil
}

func (s *fakeSurface) disposeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposes
}

func (s *fakeSurface) focusCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focuses
}

func (s *fakeSurface) allWrites() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out string
	for _, w := range s.writes {
		out += w
	}
	return out
}

// fakeClipboard counts operations and signals each one so asynchronous
// side effects can be awaited deterministically.
type fakeClipboard struct {
	mu       sync.Mutex
	text     string
	readErr  error
	writeErr error
	reads    int
	writes   []string
	ops      chan struct{}
}

func newFakeClipboard(text string) *fakeClipboard {
	return &fakeClipboard{text: text, ops: make(chan struct{}, 8)}
}

func (c *fakeClipboard) ReadText() (string, error) {
	c.mu.Lock()
	c.reads++
	text, err := c.text, c.readErr
	c.mu.Unlock()
	c.ops <- struct{}{}
	return text, err
}

func (c *fakeClipboard) WriteText(text string) error {
	c.mu.Lock()
	c.writes = append(c.writes, text)
	err := c.writeErr
	c.mu.Unlock()
	c.ops <- struct{}{}
	return err
}

func (c *fakeClipboard) waitOp(t *testing.T) {
	t.Helper()
	select {
	case <-c.ops:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clipboard operation")
	}
}

func (c *fakeClipboard) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *fakeClipboard) allWrites() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

// testBridge wires a session over fakes, mounted and ready.
type testBridge struct {
	ch      *fakeChannel
	surface *fakeSurface
	session *Session
	store   *Store
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()
	ch := newFakeChannel()
	surface := newFakeSurface(80, 24)
	session := NewSession(ch, SessionConfig{
		Cols: 80,
		Rows: 24,
		Surface: func(cols, rows int) term.Surface {
			surface.cols, surface.rows = cols, rows
			return surface
		},
	})
	session.Mount()

	store := NewStore()
	store.SetSession(session)
	return &testBridge{ch: ch, surface: surface, session: session, store: store}
}

// waitForEvents polls until the channel has seen n emissions of event.
func waitForEvents(t *testing.T, ch *fakeChannel, event string, n int) []emittedEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := ch.events(event); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	evs := ch.events(event)
	t.Fatalf("expected %d %s events, got %d", n, event, len(evs))
	return evs
}
