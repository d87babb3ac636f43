package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds status and readiness lookups
	DefaultTimeout = 10 * time.Second

	// StreamTimeout bounds a whole streamed answer
	StreamTimeout = 5 * time.Minute

	// ShortTimeout is for quick operations (enqueueing, cache lookups)
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithStreamTimeout creates a context for a full answer stream
func WithStreamTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, StreamTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}
