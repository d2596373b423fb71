package app

import (
	"context"

	"github.com/evanschultz/todoterm/internal/domain"
)

// Repository persists task list snapshots. Implementations return an error
// wrapping ErrNotFound when nothing has been saved yet.
type Repository interface {
	Load(context.Context) (domain.Snapshot, error)
	Save(context.Context, domain.Snapshot) error
}

// Clipboard receives yanked task text.
type Clipboard interface {
	WriteAll(string) error
}

// Logger is the structured logging surface used by the dispatcher.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}
