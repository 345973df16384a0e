package bridge

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/user/termbridge/internal/channel"
	"github.com/user/termbridge/internal/protocol"
	"github.com/user/termbridge/internal/term"
)

// State tracks the session lifecycle. Transitions only move forward except
// Bound falling back to Created on disconnect; Disposed is terminal.
type State int

const (
	StateUninitialized State = iota
	StateCreated
	StateBound
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreated:
		return "created"
	case StateBound:
		return "bound"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

const (
	defaultGreeting = "Connecting...\r\n"
	connectedAck    = "Connected.\r\n"
)

// SessionConfig carries the construction knobs for a Session. Surface is a
// factory so callers can keep a handle to the concrete implementation;
// when nil the vt10x surface is used.
type SessionConfig struct {
	Cols     int
	Rows     int
	Greeting string
	Surface  func(cols, rows int) term.Surface
	Logger   *slog.Logger
}

// Session owns the single render surface instance and its channel
// subscriptions, and mediates between UI visibility and the remote PTY.
// The channel is borrowed, never closed by the session.
type Session struct {
	ch  channel.Channel
	log *slog.Logger

	newSurface func(cols, rows int) term.Surface
	greeting   string

	mu         sync.Mutex
	state      State
	surface    term.Surface
	reconciler *Reconciler
	cols, rows int

	subs    []*channel.Subscription
	connSub *channel.Subscription
	discSub *channel.Subscription
}

func NewSession(ch channel.Channel, cfg SessionConfig) *Session {
	if cfg.Cols <= 0 {
		cfg.Cols = 80
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 24
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.Surface == nil {
		cfg.Surface = func(cols, rows int) term.Surface { return term.NewVT(cols, rows) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		ch:         ch,
		log:        cfg.Logger,
		newSurface: cfg.Surface,
		greeting:   cfg.Greeting,
		cols:       cfg.Cols,
		rows:       cfg.Rows,
	}
}

// Mount creates the render surface and registers the channel lifecycle
// handlers. Only the first call acts; binding happens immediately when the
// channel is already connected.
func (s *Session) Mount() {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return
	}
	surface := s.newSurface(s.cols, s.rows)
	s.surface = surface
	s.reconciler = NewReconciler(surface)
	s.state = StateCreated
	s.mu.Unlock()

	surface.OnData(s.SendInput)
	surface.OnResize(s.forwardResize)
	surface.Write([]byte(s.greeting))

	connSub := s.ch.On(protocol.EventConnect, func(json.RawMessage) { s.bind() })
	discSub := s.ch.On(protocol.EventDisconnect, func(json.RawMessage) { s.unbind() })

	s.mu.Lock()
	s.connSub, s.discSub = connSub, discSub
	s.mu.Unlock()

	s.log.Debug("terminal session mounted", "cols", s.cols, "rows", s.rows)

	if s.ch.Connected() {
		s.bind()
	}
}

// bind moves Created to Bound: output and cursor subscriptions are set up,
// the acknowledgement is written, and a full resend is requested so the
// surface converges to server state within one round trip.
func (s *Session) bind() {
	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		return
	}
	s.state = StateBound
	surface := s.surface
	outSub := s.ch.On(protocol.EventOutput, s.handleOutput)
	curSub := s.ch.On(protocol.EventCursorPosition, s.handleCursor)
	s.subs = append(s.subs, outSub, curSub)
	s.mu.Unlock()

	surface.Write([]byte(connectedAck))
	if err := s.ch.Emit(protocol.EventResendOutput, protocol.ResendPayload{}); err != nil {
		s.log.Debug("resend request dropped", "error", err)
	}
}

// unbind moves Bound back to Created on disconnect. The surface is
// retained so the visual buffer persists until reconnection re-binds and a
// fresh resend arrives.
func (s *Session) unbind() {
	s.mu.Lock()
	if s.state != StateBound {
		s.mu.Unlock()
		return
	}
	s.state = StateCreated
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Release()
	}
	s.log.Debug("terminal session unbound")
}

// Dispose releases every subscription and disposes the surface exactly
// once. Safe to call repeatedly and from any state; late channel events
// become no-ops afterwards.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return
	}
	s.state = StateDisposed
	surface := s.surface
	subs := s.subs
	s.subs = nil
	connSub, discSub := s.connSub, s.discSub
	s.connSub, s.discSub = nil, nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Release()
	}
	connSub.Release()
	discSub.Release()
	if surface != nil {
		surface.Dispose()
	}
	s.log.Debug("terminal session disposed")
}

// SendInput forwards raw input to the remote process. The reserved bytes
// 0x01 and 0x04 are swallowed locally; forwarding them could detach a
// multiplexed remote session or terminate the remote shell. While the
// transport is down the input is dropped, never queued.
func (s *Session) SendInput(data string) {
	s.mu.Lock()
	disposed := s.state == StateDisposed
	s.mu.Unlock()
	if disposed {
		return
	}

	cleaned := sanitizeInput(data)
	if cleaned == "" {
		return
	}
	if err := s.ch.Emit(protocol.EventInput, protocol.InputPayload{Input: cleaned}); err != nil {
		s.log.Debug("input dropped", "error", err)
	}
}

func (s *Session) forwardResize(cols, rows int) {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return
	}
	s.cols, s.rows = cols, rows
	s.mu.Unlock()

	if err := s.ch.Emit(protocol.EventResize, protocol.ResizePayload{Cols: cols, Rows: rows}); err != nil {
		s.log.Debug("resize dropped", "error", err)
	}
}

func (s *Session) handleOutput(data json.RawMessage) {
	s.mu.Lock()
	if s.state != StateBound {
		s.mu.Unlock()
		return
	}
	rec := s.reconciler
	s.mu.Unlock()

	var p protocol.OutputPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Debug("dropping malformed output payload", "error", err)
		return
	}
	rec.ApplySnapshot(p.Output)
}

func (s *Session) handleCursor(data json.RawMessage) {
	s.mu.Lock()
	if s.state != StateBound {
		s.mu.Unlock()
		return
	}
	rec := s.reconciler
	s.mu.Unlock()

	var p protocol.CursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Debug("dropping malformed cursor payload", "error", err)
		return
	}
	rec.ApplyCursor(p.X, p.Y)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Surface returns the render surface, nil before Mount.
func (s *Session) Surface() term.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

func (s *Session) Geometry() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

func sanitizeInput(data string) string {
	if !strings.ContainsAny(data, "\x01\x04") {
		return data
	}
	return strings.Map(func(r rune) rune {
		if r == 0x01 || r == 0x04 {
			return -1
		}
		return r
	}, data)
}
