package bridge

import "github.com/atotto/clipboard"

// Clipboard abstracts the system clipboard. Operations are best-effort;
// callers drop failures silently.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

type systemClipboard struct{}

// SystemClipboard returns the host clipboard.
func SystemClipboard() Clipboard { return systemClipboard{} }

func (systemClipboard) ReadText() (string, error) { return clipboard.ReadAll() }

func (systemClipboard) WriteText(text string) error { return clipboard.WriteAll(text) }
