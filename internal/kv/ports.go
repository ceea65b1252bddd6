// Package kv defines the key-value medium the document store persists into.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Ports for outbound adapters.
type (
	// Medium is a synchronous byte store addressed by string keys.
	Medium interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Set(ctx context.Context, key string, value []byte) error
	}

	// Closer is implemented by media that hold resources.
	Closer interface {
		Close() error
	}
)
