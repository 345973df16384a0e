package db

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Run records one shell lifetime: what was spawned, at what size, and how it
// ended. LastOutput keeps the final rendered screen so finished runs can be
// inspected after the fact.
type Run struct {
	ID         string    `json:"id"`
	Profile    string    `json:"profile"`
	Command    string    `json:"command"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	ExitCode   int       `json:"exit_code"`
	Running    bool      `json:"running"`
	LastOutput string    `json:"last_output,omitempty"`
}

func NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = nowUTC()
	}
	return ts.UTC().Format(time.RFC3339)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}
