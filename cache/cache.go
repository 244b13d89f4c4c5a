// Package cache memoizes fitted models keyed by input fingerprint and order.
//
// Values are stored JSON encoded in every backend, so a value read back is
// always a private copy and backends are interchangeable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store defines the cache operations the forecasting pipeline needs.
type Store interface {
	// Get decodes the value stored under key into dest, or returns
	// ErrCacheMiss.
	Get(ctx context.Context, key string, dest any) error
	// Set stores value under key. A non-positive ttl selects the store's
	// default expiration.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// FitKey builds the key of a fitted model: the series fingerprint, the
// (p, d, q) order and the solver limits, since a fit cut short by a tighter
// budget differs from a full one.
func FitKey(fingerprint uint64, p, d, q, maxIterations int, maxDuration time.Duration) string {
	return fmt.Sprintf("fit:%016x:%d-%d-%d:%d:%s", fingerprint, p, d, q, maxIterations, maxDuration)
}
