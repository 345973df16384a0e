package bridge

import "log/slog"

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
)

func (m Modifier) Has(mod Modifier) bool { return m&mod != 0 }

// EventKind distinguishes key presses from other keyboard events.
type EventKind int

const (
	KeyDown EventKind = iota
	KeyUp
)

// KeyEvent is one raw keyboard event ahead of native surface processing.
// Key is the lowercase key name ("v", "c", "x", single runes).
type KeyEvent struct {
	Kind EventKind
	Key  string
	Mods Modifier
}

// Router classifies keyboard events reaching the focused render surface as
// local shortcuts or pass-through, and executes clipboard side effects for
// the remapped copy and paste chords. ctrl+c stays the interrupt key, so
// copy and paste live on ctrl+shift+c/x and ctrl+shift+v.
type Router struct {
	store     *Store
	clipboard Clipboard
	log       *slog.Logger
}

func NewRouter(store *Store, clip Clipboard, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{store: store, clipboard: clip, log: logger}
}

// Route returns whether the render surface may process the event natively.
// Only key-down events are examined; everything else passes through.
func (r *Router) Route(ev KeyEvent) bool {
	if ev.Kind != KeyDown {
		return true
	}
	if !ev.Mods.Has(ModCtrl) || !ev.Mods.Has(ModShift) {
		return true
	}

	session := r.store.Session()
	if session == nil {
		return true
	}

	switch ev.Key {
	case "v":
		r.paste(session)
		return false
	case "c", "x":
		r.copySelection(session)
		return false
	}
	return true
}

// paste reads the clipboard asynchronously and forwards the text as a
// simulated input event once it resolves. Failures are dropped without
// retry; there is no cancellation, a read resolving after disposal is
// simply a no-op forward.
func (r *Router) paste(session *Session) {
	go func() {
		text, err := r.clipboard.ReadText()
		if err != nil {
			r.log.Debug("clipboard read dropped", "error", err)
			return
		}
		session.SendInput(text)
	}()
}

// copySelection writes the current surface selection to the clipboard and
// restores focus to the surface.
func (r *Router) copySelection(session *Session) {
	surface := session.Surface()
	if surface == nil {
		return
	}
	text := surface.Selection()
	go func() {
		if err := r.clipboard.WriteText(text); err != nil {
			r.log.Debug("clipboard write dropped", "error", err)
		}
	}()
	surface.Focus()
}
