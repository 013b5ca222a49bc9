// Package querycache is a keyed cache of asynchronous query results with a
// freshness window and de-duplication of concurrent fetches.
package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// State tags a cached result.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Result is the observable state of one key. Data holds the last successful
// value even while a refetch is pending or after it failed.
type Result[T any] struct {
	State     State
	Data      T
	Err       error
	UpdatedAt time.Time

	expired bool
}

// FetchFunc produces a fresh value for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache holds results keyed by string.
type Cache[T any] struct {
	staleTime time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*Result[T]
	group   singleflight.Group
}

// New returns a cache whose successful entries stay fresh for staleTime.
// A zero staleTime makes every Fetch go to the source, still de-duplicated.
func New[T any](staleTime time.Duration) *Cache[T] {
	return &Cache[T]{
		staleTime: staleTime,
		now:       time.Now,
		entries:   make(map[string]*Result[T]),
	}
}

// SetClock replaces the time source. Intended for tests.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Peek returns the current result for key without fetching.
func (c *Cache[T]) Peek(key string) (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result[T]{}, false
	}
	return *e, true
}

// Fresh reports whether key holds a successful value inside the window.
func (c *Cache[T]) Fresh(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freshLocked(key)
}

func (c *Cache[T]) freshLocked(key string) bool {
	e, ok := c.entries[key]
	return ok && e.State == StateSuccess && !e.expired && c.now().Sub(e.UpdatedAt) < c.staleTime
}

// Fetch returns the cached value for key when fresh and otherwise calls fn.
// Concurrent callers for the same key share one call of fn, which keeps
// running when the first caller goes away. Errors are recorded but never
// served as fresh.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn FetchFunc[T]) (T, error) {
	c.mu.Lock()
	if c.freshLocked(key) {
		v := c.entries[key].Data
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	return c.load(ctx, key, fn)
}

// Refresh discards any cached value for key and fetches a new one.
func (c *Cache[T]) Refresh(ctx context.Context, key string, fn FetchFunc[T]) (T, error) {
	c.group.Forget(key)
	return c.load(ctx, key, fn)
}

func (c *Cache[T]) load(ctx context.Context, key string, fn FetchFunc[T]) (T, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		c.markPending(key)
		v, err := fn(context.WithoutCancel(ctx))
		c.record(key, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) markPending(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.State = StatePending
		e.Err = nil
		return
	}
	c.entries[key] = &Result[T]{State: StatePending}
}

func (c *Cache[T]) record(key string, v T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		// Invalidated while in flight.
		return
	}
	if err != nil {
		e.State = StateError
		e.Err = err
		return
	}
	e.State = StateSuccess
	e.Data = v
	e.Err = nil
	e.UpdatedAt = c.now()
	e.expired = false
}

// Set stores v as a fresh successful value for key.
func (c *Cache[T]) Set(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Result[T]{State: StateSuccess, Data: v, UpdatedAt: c.now()}
}

// Expire keeps the value of key readable through Peek but makes the next
// Fetch reload it.
func (c *Cache[T]) Expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.expired = true
	}
}

// Update applies fn to the cached value of key in place and returns the
// previous result as a snapshot. It is a no-op returning ok=false when key
// holds no successful value.
func (c *Cache[T]) Update(key string, fn func(T) T) (snapshot Result[T], ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	if !found || (e.State != StateSuccess && e.UpdatedAt.IsZero()) {
		return Result[T]{}, false
	}
	snapshot = *e
	e.Data = fn(e.Data)
	return snapshot, true
}

// Invalidate drops key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Cache[T]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	var keys []string
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.group.Forget(k)
	}
}
