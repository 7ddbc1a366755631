// Package cache provides a small TTL key/value store used to avoid hammering
// rate-limited providers with identical queries.
package cache

import (
	"context"
	"time"
)

// Store keeps JSON-encoded values for a bounded time.
type Store interface {
	// Get decodes the value stored under key into out. It returns false when
	// the key is missing or expired.
	Get(ctx context.Context, key string, out any) (bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}
