package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire event names. Input, resize and resend flow client to server;
// output and cursor flow server to client.
const (
	EventInput          = "ptyInput"
	EventResize         = "ptyResize"
	EventResendOutput   = "ptyResendOutput"
	EventOutput         = "ptyOutput"
	EventCursorPosition = "ptyCursorPosition"
)

// Synthetic channel events fired locally on transport state changes.
// They never appear on the wire.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type InputPayload struct {
	Input string `json:"input"`
}

type ResizePayload struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

type ResendPayload struct{}

// OutputPayload carries the entire visible buffer, one string per visual
// line. It is never a delta.
type OutputPayload struct {
	Output []string `json:"output"`
}

// CursorPayload is zero-based.
type CursorPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Encode wraps payload in an Envelope and marshals the whole message.
func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Decode parses one wire message into its envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errors.New("decode envelope: missing event")
	}
	return env, nil
}
