package bridge

import "sync"

// Store holds the process-wide terminal UI state: the single Session and
// the open/closed visibility flag. It is created when the application
// shell mounts and torn down when the shell unmounts, and is passed
// explicitly to the router and lifecycle manager instead of living as
// package globals.
type Store struct {
	mu        sync.Mutex
	session   *Session
	open      bool
	listeners []func(open bool)
}

func NewStore() *Store {
	return &Store{}
}

func (st *Store) SetSession(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = s
}

func (st *Store) Session() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session
}

func (st *Store) Open() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.open
}

// SetOpen flips the visibility flag and notifies listeners on change.
func (st *Store) SetOpen(open bool) {
	st.mu.Lock()
	if st.open == open {
		st.mu.Unlock()
		return
	}
	st.open = open
	listeners := make([]func(bool), len(st.listeners))
	copy(listeners, st.listeners)
	st.mu.Unlock()

	for _, fn := range listeners {
		fn(open)
	}
}

// Toggle flips open/closed and returns the new state.
func (st *Store) Toggle() bool {
	st.mu.Lock()
	st.open = !st.open
	open := st.open
	listeners := make([]func(bool), len(st.listeners))
	copy(listeners, st.listeners)
	st.mu.Unlock()

	for _, fn := range listeners {
		fn(open)
	}
	return open
}

// OnOpenChange registers a visibility listener for the life of the store.
func (st *Store) OnOpenChange(fn func(open bool)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, fn)
}

// Teardown disposes the session and drops all listeners. The store is not
// reusable afterwards.
func (st *Store) Teardown() {
	st.mu.Lock()
	session := st.session
	st.session = nil
	st.listeners = nil
	st.open = false
	st.mu.Unlock()

	if session != nil {
		session.Dispose()
	}
}
