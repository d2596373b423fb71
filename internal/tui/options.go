package tui

import (
	"context"
	"strings"
	"time"
)

// DefaultTickInterval is the idle-tick period driving chord and message timeouts.
const DefaultTickInterval = 100 * time.Millisecond

type Option func(*Model)

func WithTickInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

func WithAppName(name string) Option {
	return func(m *Model) {
		if name = strings.TrimSpace(name); name != "" {
			m.appName = name
		}
	}
}

// WithStoreLabel sets the store location shown in the header.
func WithStoreLabel(label string) Option {
	return func(m *Model) {
		m.storeLabel = strings.TrimSpace(label)
	}
}

// WithContext sets the context passed to load and save calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}
