package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/user/termbridge/internal/bridge"
	"github.com/user/termbridge/internal/channel"
	"github.com/user/termbridge/internal/protocol"
	"github.com/user/termbridge/internal/term"
)

// Config wires an App together. Channel, Store and Router are required;
// Screen is optional and exists so tests can inject a simulation screen.
type Config struct {
	Channel  channel.Channel
	Store    *bridge.Store
	Router   *bridge.Router
	Log      *LogBuffer
	Logger   *slog.Logger
	Cols     int
	Rows     int
	Greeting string
	Screen   tcell.Screen
}

// App is the enclosing application shell: a status screen with the event
// log underneath and the toggleable terminal overlay on top. The overlay
// surface is the bridge session's render surface; the app only draws it
// and feeds it events.
type App struct {
	ch      channel.Channel
	store   *bridge.Store
	router  *bridge.Router
	session *bridge.Session
	status  *statusView
	overlay *overlay
	logbuf  *LogBuffer
	log     *slog.Logger

	mu     sync.Mutex
	screen tcell.Screen
	vt     *term.VT

	subs []*channel.Subscription
}

type redrawEvent struct{ tcell.EventTime }

type quitEvent struct{ tcell.EventTime }

func New(cfg Config) (*App, error) {
	if cfg.Channel == nil {
		return nil, fmt.Errorf("tui: channel is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("tui: store is required")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("tui: router is required")
	}
	if cfg.Log == nil {
		cfg.Log = NewLogBuffer(256)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &App{
		ch:      cfg.Channel,
		store:   cfg.Store,
		router:  cfg.Router,
		status:  newStatusView(cfg.Log),
		overlay: &overlay{},
		logbuf:  cfg.Log,
		log:     cfg.Logger,
		screen:  cfg.Screen,
	}

	a.session = bridge.NewSession(cfg.Channel, bridge.SessionConfig{
		Cols:     cfg.Cols,
		Rows:     cfg.Rows,
		Greeting: cfg.Greeting,
		Logger:   cfg.Logger,
		Surface: func(cols, rows int) term.Surface {
			vt := term.NewVT(cols, rows)
			a.mu.Lock()
			a.vt = vt
			a.mu.Unlock()
			return vt
		},
	})
	cfg.Store.SetSession(a.session)

	return a, nil
}

// Session exposes the bridge session the app mounted, mainly for tests and
// shutdown inspection.
func (a *App) Session() *bridge.Session {
	return a.session
}

// Run initializes the screen and processes events until quit. The store is
// torn down on return, which also disposes the session.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	screen := a.screen
	a.mu.Unlock()
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	a.mu.Lock()
	a.screen = screen
	a.mu.Unlock()

	a.subscribe()
	defer a.unsubscribe()
	a.logbuf.OnAppend(a.postRedraw)

	a.store.OnOpenChange(a.onOpenChange)
	defer a.store.Teardown()

	a.session.Mount()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ev := &quitEvent{}
			ev.SetEventNow()
			screen.PostEventWait(ev)
		case <-done:
		}
	}()

	a.draw()
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch ev := ev.(type) {
		case *quitEvent:
			return nil
		case *tcell.EventKey:
			if !a.handleKey(ev) {
				return nil
			}
		case *tcell.EventResize:
			a.handleResize()
			screen.Sync()
		case *tcell.EventMouse:
			a.handleMouse(ev)
		case *redrawEvent:
		}
		a.draw()
	}
}

func (a *App) subscribe() {
	redraw := func(json.RawMessage) { a.postRedraw() }
	a.subs = append(a.subs,
		a.ch.On(protocol.EventConnect, func(json.RawMessage) {
			a.status.setConnected(true)
			a.postRedraw()
		}),
		a.ch.On(protocol.EventDisconnect, func(json.RawMessage) {
			a.status.setConnected(false)
			a.postRedraw()
		}),
		a.ch.On(protocol.EventOutput, redraw),
		a.ch.On(protocol.EventCursorPosition, redraw),
	)
	a.status.setConnected(a.ch.Connected())
}

func (a *App) unsubscribe() {
	for _, sub := range a.subs {
		sub.Release()
	}
	a.subs = nil
}

func (a *App) surface() *term.VT {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vt
}

func (a *App) currentScreen() tcell.Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

func (a *App) postRedraw() {
	screen := a.currentScreen()
	if screen == nil {
		return
	}
	ev := &redrawEvent{}
	ev.SetEventNow()
	// A full queue already has a redraw pending, dropping is fine.
	_ = screen.PostEvent(ev)
}

// handleKey returns false when the app should quit.
func (a *App) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlQ {
		return false
	}
	if isToggleKey(ev) {
		a.store.Toggle()
		return true
	}
	if a.store.Open() {
		a.routeToSurface(ev)
		return true
	}
	a.handleStatusKey(ev)
	return true
}

// routeToSurface passes the key through the input router first; allowed
// keys are encoded and fed to the surface's native data path.
func (a *App) routeToSurface(ev *tcell.EventKey) {
	vt := a.surface()
	if vt == nil {
		return
	}
	if !a.router.Route(routerEvent(ev)) {
		return
	}
	if data := term.EncodeKey(ev); data != "" {
		vt.Input(data)
	}
}

func (a *App) handleStatusKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyUp:
		a.status.scrollBy(1)
	case tcell.KeyDown:
		a.status.scrollBy(-1)
	case tcell.KeyPgUp:
		a.status.scrollBy(10)
	case tcell.KeyPgDn:
		a.status.scrollBy(-10)
	case tcell.KeyEnd:
		a.status.scrollToTail()
	}
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	if a.store.Open() {
		// Scroll lock: the overlay consumes everything, including wheel
		// events that would otherwise scroll the status log.
		a.overlay.handleMouse(ev, a.surface())
		return
	}
	switch ev.Buttons() {
	case tcell.WheelUp:
		a.status.scrollBy(3)
	case tcell.WheelDown:
		a.status.scrollBy(-3)
	}
}

func (a *App) handleResize() {
	if a.store.Open() {
		a.layoutAndFit()
	}
}

func (a *App) onOpenChange(open bool) {
	vt := a.surface()
	if open {
		a.layoutAndFit()
		if vt != nil {
			vt.Focus()
		}
	} else {
		if vt != nil {
			vt.Blur()
		}
		a.overlay.clearSelection()
	}
	a.postRedraw()
}

func (a *App) layoutAndFit() {
	screen := a.currentScreen()
	if screen == nil {
		return
	}
	w, h := screen.Size()
	a.overlay.layout(w, h)
	if vt := a.surface(); vt != nil {
		cols, rows := a.overlay.innerSize()
		vt.FitTo(cols, rows)
	}
}

func (a *App) draw() {
	screen := a.currentScreen()
	if screen == nil {
		return
	}
	w, h := screen.Size()
	open := a.store.Open()

	screen.Clear()
	a.status.draw(screen, w, h, open)
	if open {
		a.overlay.draw(screen, a.surface(), a.ch.Connected())
	} else {
		screen.HideCursor()
	}
	screen.Show()
}

// isToggleKey matches ctrl+backtick. Legacy terminals deliver the chord as
// NUL, modern ones report the backtick rune with the ctrl modifier.
func isToggleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyRune && ev.Rune() == '`' && ev.Modifiers()&tcell.ModCtrl != 0 {
		return true
	}
	return ev.Key() == tcell.KeyCtrlSpace
}

func routerEvent(ev *tcell.EventKey) bridge.KeyEvent {
	var mods bridge.Modifier
	m := ev.Modifiers()
	if m&tcell.ModCtrl != 0 {
		mods |= bridge.ModCtrl
	}
	if m&tcell.ModShift != 0 {
		mods |= bridge.ModShift
	}
	if m&tcell.ModAlt != 0 {
		mods |= bridge.ModAlt
	}

	var key string
	switch {
	case ev.Key() == tcell.KeyRune:
		key = strings.ToLower(string(ev.Rune()))
	case ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ:
		key = string(rune('a' + ev.Key() - tcell.KeyCtrlA))
		mods |= bridge.ModCtrl
	}
	return bridge.KeyEvent{Kind: bridge.KeyDown, Key: key, Mods: mods}
}
