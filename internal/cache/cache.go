// Package cache is a process-wide key/value store with per-entry expiry and
// de-duplication of concurrent requests for the same key.
//
// A key holds at most one entry: either a resolved value with an expiry, or an
// in-flight marker carrying a Pending handle that concurrent callers wait on.
// Expired values are purged lazily on read; there is no background sweep.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/go-rota/internal/config"
)

// ErrAbandoned is delivered to waiters when the request owning a Pending
// handle returns without resolving it (for instance after a panic).
var ErrAbandoned = errors.New("in-flight request abandoned")

// Pending is a shared handle on an outstanding request.
type Pending struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolve publishes the outcome. Only the first call has any effect.
func (p *Pending) Resolve(value any, err error) {
	p.once.Do(func() {
		p.value, p.err = value, err
		close(p.done)
	})
}

// Done is closed once the handle is resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the handle is resolved or ctx ends.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type entry struct {
	value     any
	expiresAt time.Time
	inflight  *Pending
}

// Cache is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

// New creates an empty cache. A nil now defaults to time.Now.
func New(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		items: make(map[string]entry),
		now:   now,
	}
}

// Get returns the live value for key, or the shared Pending handle when a
// request for key is in flight. ok is false on a miss.
func (c *Cache) Get(key string) (value any, pending *Pending, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, found := c.items[key]
	if !found {
		return nil, nil, false
	}
	if it.inflight != nil {
		return nil, it.inflight, true
	}
	if c.now().Before(it.expiresAt) {
		return it.value, nil, true
	}
	delete(c.items, key)
	return nil, nil, false
}

// Set stores value under key until ttl elapses and returns value.
// The entry replaces whatever key held before, in-flight marker included.
func (c *Cache) Set(key string, value any, ttl time.Duration) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return value
}

// SetInflight registers an in-flight marker for key. When another caller
// already holds one, that handle is returned with owner == false.
func (c *Cache) SetInflight(key string) (p *Pending, owner bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, found := c.items[key]; found && it.inflight != nil {
		return it.inflight, false
	}
	p = newPending()
	c.items[key] = entry{inflight: p}
	return p, true
}

// ClearInflight removes the in-flight marker for key. Resolved values are left alone.
func (c *Cache) ClearInflight(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, found := c.items[key]; found && it.inflight != nil {
		delete(c.items, key)
	}
}

// release drops the in-flight marker for key only if it is still p.
func (c *Cache) release(key string, p *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, found := c.items[key]; found && it.inflight == p {
		delete(c.items, key)
	}
}

// Do returns the cached value for key or runs fn to produce it.
// Concurrent callers for the same key share a single fn invocation.
// A ttl <= 0 bypasses the cache entirely. Failures are never cached.
func (c *Cache) Do(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		return fn(ctx)
	}

	if v, pending, ok := c.Get(key); ok {
		if pending != nil {
			slog.Debug(config.MsgCacheShared, config.LogKeyComponent, config.CompCache, config.LogKeyKey, key)
			return pending.Wait(ctx)
		}
		slog.Debug(config.MsgCacheHit, config.LogKeyComponent, config.CompCache, config.LogKeyKey, key)
		return v, nil
	}

	p, owner := c.SetInflight(key)
	if !owner {
		return p.Wait(ctx)
	}

	// The marker is released exactly once on every path, panics included.
	defer func() {
		c.release(key, p)
		p.Resolve(nil, ErrAbandoned)
	}()

	v, err := fn(ctx)
	if err == nil {
		c.Set(key, v, ttl)
	}
	p.Resolve(v, err)
	return v, err
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge drops every entry. In-flight requests still resolve their waiters.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}
