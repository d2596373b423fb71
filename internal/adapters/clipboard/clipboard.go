// Package clipboard mirrors yanked task text to the system clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnsupported reports that no clipboard utility is available on this system.
var ErrUnsupported = errors.New("system clipboard unavailable")

// System writes to the OS clipboard through the platform clipboard utility.
type System struct {
	write func(string) error
}

// NewSystem constructs a System clipboard writer.
func NewSystem() *System {
	return &System{write: clipboard.WriteAll}
}

// Available reports whether a clipboard utility was found.
func Available() bool {
	return !clipboard.Unsupported
}

// WriteAll copies text to the clipboard.
func (s *System) WriteAll(text string) error {
	if !Available() {
		return ErrUnsupported
	}
	return s.write(text)
}
