// Package cache holds recently computed values for a bounded time.
package cache

import (
	"context"
	"time"
)

// CurrentPrices is the key the current snapshot is cached under.
const CurrentPrices = "current_prices"

// Cache maps keys to values that stay valid for a TTL measured from when
// they were stored.
type Cache[V any] interface {
	// GetOrCompute returns the stored value when it is younger than ttl,
	// otherwise calls compute, stores the result and returns it.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) V) V
	// Set replaces the value under key and restarts its age.
	Set(ctx context.Context, key string, v V)
}
