package ptyhost

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/termbridge/internal/db"
)

// restartDelay spaces out respawns so a crashing shell cannot spin.
var restartDelay = time.Second

// Manager owns the single live shell run. It spawns the shell, republishes
// coalesced screen snapshots through a Publisher, records run history, and
// respawns the shell when it exits with restart enabled.
type Manager struct {
	log  *slog.Logger
	cfg  Config
	runs *db.RunRepo
	pub  *Publisher

	mu      sync.Mutex
	current *Session
	stopped bool
}

// NewManager wires a manager to its history store and broadcast sink. runs
// may be nil, in which case no history is recorded.
func NewManager(log *slog.Logger, cfg Config, runs *db.RunRepo, onFlush func(lines []string, x, y int)) *Manager {
	if cfg.Cols <= 0 {
		cfg.Cols = 120
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 30
	}
	return &Manager{
		log:  log,
		cfg:  cfg,
		runs: runs,
		pub:  NewPublisher(cfg.Interval, onFlush),
	}
}

// Start spawns the first run.
func (m *Manager) Start(ctx context.Context) error {
	return m.spawn(ctx)
}

// Restart spawns a fresh run and terminates the previous one. The old run's
// exit is still recorded in history.
func (m *Manager) Restart(ctx context.Context) error {
	return m.spawn(ctx)
}

// spawn starts a new session and installs it as the current run. The
// previous run, if any, is closed after the replacement is in place so its
// exit watcher sees itself as stale and does not respawn.
func (m *Manager) spawn(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return fmt.Errorf("manager is stopped")
	}
	m.mu.Unlock()

	id := uuid.NewString()
	sess, err := newSession(id, m.cfg.Profile, m.cfg.Command, m.cfg.Dir, m.cfg.Env, m.cfg.Cols, m.cfg.Rows, m.pub.Notify)
	if err != nil {
		return fmt.Errorf("spawn run: %w", err)
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = sess.Close()
		return fmt.Errorf("manager is stopped")
	}
	old := m.current
	m.current = sess
	m.mu.Unlock()

	m.pub.Watch(sess)
	if old != nil {
		_ = old.Close()
	}

	m.recordStart(ctx, sess)
	m.log.Info("run started", "run_id", id, "profile", sess.Profile(), "command", sess.Command())
	go m.watchExit(sess)
	return nil
}

func (m *Manager) recordStart(ctx context.Context, sess *Session) {
	if m.runs == nil {
		return
	}
	cols, rows := sess.Size()
	run := &db.Run{
		ID:        sess.ID(),
		Profile:   sess.Profile(),
		Command:   sess.Command(),
		Cols:      cols,
		Rows:      rows,
		StartedAt: sess.StartedAt(),
	}
	if err := m.runs.Create(ctx, run); err != nil {
		m.log.Warn("record run start", "run_id", sess.ID(), "error", err)
	}
}

// watchExit waits for the session to exit, flushes the final screen, records
// the outcome, and respawns when restart is enabled and the session is still
// the current one.
func (m *Manager) watchExit(sess *Session) {
	<-sess.Exited()

	m.pub.Flush()

	if m.runs != nil {
		last := strings.Join(sess.Snapshot(), "\n")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.runs.Finish(ctx, sess.ID(), sess.ExitCode(), last); err != nil {
			m.log.Warn("record run exit", "run_id", sess.ID(), "error", err)
		}
		cancel()
	}
	m.log.Info("run exited", "run_id", sess.ID(), "exit_code", sess.ExitCode())

	m.mu.Lock()
	stale := m.current != sess
	stopped := m.stopped
	m.mu.Unlock()
	if stale || stopped || !m.cfg.Restart {
		return
	}

	time.Sleep(restartDelay)
	if err := m.spawn(context.Background()); err != nil {
		m.log.Error("restart run", "error", err)
	}
}

func (m *Manager) session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// WriteInput forwards keystrokes to the live shell.
func (m *Manager) WriteInput(data []byte) error {
	cur := m.session()
	if cur == nil {
		return ErrNoRun
	}
	return cur.WriteInput(data)
}

// Resize applies new geometry to the live shell.
func (m *Manager) Resize(cols, rows int) error {
	cur := m.session()
	if cur == nil {
		return ErrNoRun
	}
	return cur.Resize(cols, rows)
}

// Snapshot returns the live screen and cursor, used to answer refresh
// requests without waiting for the next broadcast.
func (m *Manager) Snapshot() (lines []string, x, y int, err error) {
	cur := m.session()
	if cur == nil {
		return nil, 0, 0, ErrNoRun
	}
	lines = cur.Snapshot()
	x, y = cur.Cursor()
	return lines, x, y, nil
}

// Info describes the current run.
func (m *Manager) Info() (RunInfo, error) {
	cur := m.session()
	if cur == nil {
		return RunInfo{}, ErrNoRun
	}
	cols, rows := cur.Size()
	return RunInfo{
		ID:        cur.ID(),
		Profile:   cur.Profile(),
		Command:   cur.Command(),
		Title:     cur.Title(),
		Cols:      cols,
		Rows:      rows,
		StartedAt: cur.StartedAt(),
		Running:   cur.Running(),
	}, nil
}

// Stop closes the live run and disables restarts.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	cur := m.current
	m.current = nil
	m.mu.Unlock()

	m.pub.Stop()
	if cur != nil {
		_ = cur.Close()
	}
}
