package ptyhost

import (
	"errors"
	"time"
)

// ErrNoRun is returned by manager operations when no shell run is live.
var ErrNoRun = errors.New("no active run")

// Config controls how the manager spawns and republishes the shell.
type Config struct {
	// Profile names the shell profile the run was spawned from. Recorded in
	// run history and reported over the API.
	Profile string

	// Command is the argv to spawn. Must not be empty.
	Command []string

	// Dir is the working directory for the shell. Empty means inherit.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string

	// Cols and Rows give the initial PTY geometry.
	Cols int
	Rows int

	// Interval is the snapshot coalescing window. Zero means the default.
	Interval time.Duration

	// Restart respawns the shell after it exits.
	Restart bool
}

// RunInfo describes a live or finished run.
type RunInfo struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Command   string    `json:"command"`
	Title     string    `json:"title,omitempty"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	StartedAt time.Time `json:"started_at"`
	Running   bool      `json:"running"`
}
