package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Layered is a two-level store: a process-local Memory in front of a
// shared Store such as Redis.
type Layered struct {
	local  *Memory
	remote Store
}

// NewLayered creates a layered store. Writes go to both levels; reads fall
// through to remote and refill local.
func NewLayered(local *Memory, remote Store) *Layered {
	return &Layered{local: local, remote: remote}
}

func (l *Layered) Get(ctx context.Context, key string, dest any) error {
	if err := l.local.Get(ctx, key, dest); err == nil {
		return nil
	}

	var raw json.RawMessage
	if err := l.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = l.local.Set(ctx, key, raw, 0)

	return json.Unmarshal(raw, dest)
}

// Set writes through to remote first, then local.
func (l *Layered) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := l.remote.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return l.local.Set(ctx, key, value, ttl)
}

func (l *Layered) Delete(ctx context.Context, keys ...string) error {
	_ = l.local.Delete(ctx, keys...)
	return l.remote.Delete(ctx, keys...)
}

// Close closes both levels.
func (l *Layered) Close() error {
	return errors.Join(l.local.Close(), l.remote.Close())
}
