package ptyhost

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/hinshun/vt10x"
)

// Session is one shell process attached to a PTY. Everything the shell
// writes is fed through an in-process terminal emulator, so the rendered
// screen and cursor can be snapshotted at any moment instead of replaying
// raw byte streams to clients.
type Session struct {
	id        string
	profile   string
	command   string
	startedAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	mu     sync.Mutex
	vt     vt10x.Terminal
	cols   int
	rows   int
	closed bool

	onDirty func()

	exitCode int
	exited   chan struct{}

	closeOnce sync.Once
}

// newSession starts argv inside a PTY sized cols x rows and begins pumping
// its output into the emulator. onDirty, if non-nil, fires after every chunk
// of output and after every resize.
func newSession(id, profileName string, argv []string, dir string, env []string, cols, rows int, onDirty func()) (*Session, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("newSession: empty command")
	}
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("newSession: invalid size %dx%d", cols, rows)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if len(env) > 0 {
		cmd.Env = append(cmd.Env, env...)
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("start pty for %q: %w", argv[0], err)
	}

	s := &Session{
		id:        id,
		profile:   profileName,
		command:   strings.Join(argv, " "),
		startedAt: time.Now(),
		cmd:       cmd,
		ptmx:      ptmx,
		vt:        vt10x.New(vt10x.WithSize(cols, rows)),
		cols:      cols,
		rows:      rows,
		onDirty:   onDirty,
		exited:    make(chan struct{}),
	}

	go s.readPump()
	go s.waitExit()

	return s, nil
}

// readPump copies PTY output into the emulator until the PTY closes.
func (s *Session) readPump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.mu.Lock()
			_, _ = s.vt.Write(buf[:n])
			s.mu.Unlock()
			if s.onDirty != nil {
				s.onDirty()
			}
		}
		if err != nil {
			return
		}
	}
}

// waitExit reaps the child process, records its exit code, and closes the
// Exited channel.
func (s *Session) waitExit() {
	err := s.cmd.Wait()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	s.mu.Lock()
	s.closed = true
	s.exitCode = code
	s.mu.Unlock()

	close(s.exited)
}

// ID returns the unique run identifier.
func (s *Session) ID() string { return s.id }

// Profile returns the name of the profile the shell was spawned from.
func (s *Session) Profile() string { return s.profile }

// Command returns the spawned command line as a display string.
func (s *Session) Command() string { return s.command }

// StartedAt returns when the shell was spawned.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// WriteInput forwards raw bytes to the shell.
func (s *Session) WriteInput(data []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("session %s is closed", s.id)
	}
	_, err := s.ptmx.Write(data)
	return err
}

// Resize changes both the PTY and the emulator geometry.
func (s *Session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session %s is closed", s.id)
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("resize pty: %w", err)
	}
	s.vt.Resize(cols, rows)
	s.cols = cols
	s.rows = rows
	s.mu.Unlock()

	if s.onDirty != nil {
		s.onDirty()
	}
	return nil
}

// Snapshot renders the emulator screen as one string per row, top to bottom.
// Trailing blanks on each row are trimmed.
func (s *Session) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols, rows := s.vt.Size()
	lines := make([]string, rows)
	runes := make([]rune, cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ch := s.vt.Cell(col, row).Char
			if ch == 0 {
				ch = ' '
			}
			runes[col] = ch
		}
		lines[row] = strings.TrimRight(string(runes), " ")
	}
	return lines
}

// Cursor returns the emulator cursor position, zero based.
func (s *Session) Cursor() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.vt.Cursor()
	return c.X, c.Y
}

// Title returns the window title set by the shell, if any.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vt.Title()
}

// Size returns the current PTY geometry.
func (s *Session) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Exited is closed once the child process has been reaped.
func (s *Session) Exited() <-chan struct{} { return s.exited }

// ExitCode reports the child's exit status. Only valid after Exited.
func (s *Session) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Running reports whether the child process is still alive.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close terminates the shell with SIGTERM and releases the PTY. Safe to call
// more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Signal(syscall.SIGTERM)
		}
		err = s.ptmx.Close()
	})
	return err
}
