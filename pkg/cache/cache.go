// Package cache stores rendered artifacts between runs.
//
// Keys are derived from the solved layout rather than the scene file, so two
// scenes that solve to the same rectangles share entries, and any change to a
// rectangle, the window, or a visibility state produces a new key.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
