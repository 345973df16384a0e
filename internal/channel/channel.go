package channel

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

// ErrNotConnected is returned by Emit while the transport is down. Payloads
// are never queued for later delivery.
var ErrNotConnected = errors.New("channel: not connected")

// Handler receives the raw JSON payload of one event.
type Handler func(data json.RawMessage)

// Channel is a persistent duplex event transport with named-event
// semantics.
type Channel interface {
	Emit(event string, payload any) error
	On(event string, fn Handler) *Subscription
	Connected() bool
	Close() error
}

// Subscription is the handle returned by On. Releasing it deregisters the
// handler; releasing twice is a no-op.
type Subscription struct {
	once    sync.Once
	release func()
}

func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}

// Registry maps event names to handlers and mints the Subscription
// handles. Handlers fire in registration order and survive reconnects
// untouched. The zero value is ready to use; Channel implementations embed
// it for their On side.
type Registry struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string]map[int]Handler
}

func (r *Registry) Add(event string, fn Handler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string]map[int]Handler)
	}
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[int]Handler)
	}
	r.nextID++
	id := r.nextID
	r.handlers[event][id] = fn
	return &Subscription{release: func() { r.remove(event, id) }}
}

func (r *Registry) remove(event string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.handlers[event]; m != nil {
		delete(m, id)
	}
}

// Dispatch invokes every handler registered for event, in registration
// order, on the calling goroutine.
func (r *Registry) Dispatch(event string, data json.RawMessage) {
	r.mu.Lock()
	m := r.handlers[event]
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Handler, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}
