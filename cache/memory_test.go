package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
}

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	want := entry{Name: "fit", Values: []float64{0.5, -0.25}}
	require.NoError(t, store.Set(ctx, "k", want, 0))

	var got entry
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, want, got)

	// The stored copy is independent of the caller's value.
	got.Values[0] = 99
	var again entry
	require.NoError(t, store.Get(ctx, "k", &again))
	assert.Equal(t, 0.5, again.Values[0])
}

func TestMemoryMiss(t *testing.T) {
	store := NewMemory()
	defer store.Close()

	var got entry
	err := store.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemory(WithTTL(time.Minute), WithClock(clock.Now))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "default", entry{Name: "a"}, 0))
	require.NoError(t, store.Set(ctx, "explicit", entry{Name: "b"}, time.Hour))

	clock.Advance(59 * time.Second)
	var got entry
	require.NoError(t, store.Get(ctx, "default", &got))

	clock.Advance(time.Second)
	assert.ErrorIs(t, store.Get(ctx, "default", &got), ErrCacheMiss)
	require.NoError(t, store.Get(ctx, "explicit", &got))
	assert.Equal(t, "b", got.Name)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryNoExpiryByDefault(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemory(WithClock(clock.Now))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", 1, 0))
	clock.Advance(365 * 24 * time.Hour)

	var got int
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, 1, got)
}

func TestMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(WithMaxEntries(2))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "a", 1, 0))
	require.NoError(t, store.Set(ctx, "b", 2, 0))

	var v int
	require.NoError(t, store.Get(ctx, "a", &v))

	require.NoError(t, store.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, store.Get(ctx, "b", &v), ErrCacheMiss, "least recently used entry should be evicted")
	assert.NoError(t, store.Get(ctx, "a", &v))
	assert.NoError(t, store.Get(ctx, "c", &v))
	assert.Equal(t, 2, store.Len())
}

func TestMemoryFIFOEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(WithMaxEntries(2), WithPolicy(NewFIFO()))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "a", 1, 0))
	require.NoError(t, store.Set(ctx, "b", 2, 0))

	var v int
	require.NoError(t, store.Get(ctx, "a", &v))

	require.NoError(t, store.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, store.Get(ctx, "a", &v), ErrCacheMiss, "oldest insert should be evicted")
	assert.NoError(t, store.Get(ctx, "b", &v))
}

func TestMemoryEvictsExpiredFirst(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemory(WithMaxEntries(2), WithClock(clock.Now))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "old", 1, 0))
	require.NoError(t, store.Set(ctx, "short", 2, time.Second))
	clock.Advance(2 * time.Second)

	require.NoError(t, store.Set(ctx, "new", 3, 0))

	var v int
	assert.NoError(t, store.Get(ctx, "old", &v))
	assert.ErrorIs(t, store.Get(ctx, "short", &v), ErrCacheMiss)
}

func TestMemoryOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(WithMaxEntries(2))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "a", 1, 0))
	require.NoError(t, store.Set(ctx, "b", 2, 0))
	require.NoError(t, store.Set(ctx, "a", 10, 0))

	var v int
	require.NoError(t, store.Get(ctx, "b", &v))
	require.NoError(t, store.Get(ctx, "a", &v))
	assert.Equal(t, 10, v, "last writer wins")
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "a", 1, 0))
	require.NoError(t, store.Set(ctx, "b", 2, 0))
	require.NoError(t, store.Delete(ctx, "a", "missing"))

	var v int
	assert.ErrorIs(t, store.Get(ctx, "a", &v), ErrCacheMiss)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryCleanupSweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemory(WithClock(clock.Now), WithCleanupInterval(5*time.Millisecond))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", 1, time.Second))
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(WithMaxEntries(16))
	defer store.Close()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (w+i)%32)
				_ = store.Set(ctx, key, entry{Name: key}, 0)
				var got entry
				if err := store.Get(ctx, key, &got); err == nil {
					assert.Equal(t, key, got.Name)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 16)
}

func TestMemoryCloseIdempotent(t *testing.T) {
	store := NewMemory(WithCleanupInterval(time.Millisecond))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("fifo")
	require.NoError(t, err)
	p.Added("a")
	p.Added("b")
	p.Accessed("a")
	victim, ok := p.Victim()
	require.True(t, ok)
	assert.Equal(t, "a", victim, "fifo ignores reads")

	p, err = NewPolicy("")
	require.NoError(t, err)
	p.Added("a")
	p.Added("b")
	p.Accessed("a")
	victim, _ = p.Victim()
	assert.Equal(t, "b", victim, "lru by default")

	_, err = NewPolicy("random")
	assert.ErrorContains(t, err, "unknown eviction policy")
}

func TestFitKey(t *testing.T) {
	assert.Equal(t, "fit:00000000000000ff:5-1-5:10000:30s", FitKey(0xff, 5, 1, 5, 10000, 30*time.Second))
	assert.NotEqual(t, FitKey(1, 5, 1, 5, 100, time.Second), FitKey(1, 5, 2, 5, 100, time.Second))
	assert.NotEqual(t, FitKey(1, 5, 1, 5, 100, time.Second), FitKey(1, 5, 1, 5, 200, time.Second))
	assert.NotEqual(t, FitKey(1, 5, 1, 5, 100, time.Second), FitKey(1, 5, 1, 5, 100, time.Minute))
}
