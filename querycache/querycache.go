// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/singleflight"
)

// AnyParent in an invalidation key matches every parent of the resource.
const AnyParent = "*"

// Key identifies one cached read, e.g. {"wards", panchayatID}.
// Parent is empty for get-all reads.
type Key struct {
	Resource string
	Parent   string
}

func (k Key) String() string {
	if k.Parent == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Parent
}

func (k Key) matches(pattern Key) bool {
	if k.Resource != pattern.Resource {
		return false
	}
	return pattern.Parent == AnyParent || k.Parent == pattern.Parent
}

type Options struct {
	// Retries is how many times a failed read is repeated.
	Retries int
	// RetryDelay separates attempts.
	RetryDelay time.Duration
	// StaleTime is how long a result is served without refetching.
	StaleTime time.Duration
	// CacheTime is how long an unused result is kept at all.
	CacheTime time.Duration
	// ShouldRetry decides which errors are worth repeating. Nil retries none.
	ShouldRetry func(error) bool
}

func DefaultOptions() Options {
	return Options{
		Retries:    2,
		RetryDelay: 300 * time.Millisecond,
		StaleTime:  5 * time.Minute,
		CacheTime:  10 * time.Minute,
	}
}

type entry struct {
	value     any
	fetchedAt time.Time
	usedAt    time.Time
}

// Cache holds the results of reads keyed by Key.
type Cache struct {
	opts  Options
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[Key]entry
	// Invalidation generations. A read started before its key's latest
	// invalidation neither fills the cache nor is shared with later callers.
	gen         uint64
	keyGen      map[Key]uint64
	resourceGen map[string]uint64
	// floor is the generation of the last Clear and applies to every key.
	floor uint64
}

func New(opts Options) *Cache {
	return &Cache{
		opts:        opts,
		now:         time.Now,
		entries:     make(map[Key]entry),
		keyGen:      make(map[Key]uint64),
		resourceGen: make(map[string]uint64),
	}
}

// Fetch returns the cached value for key when fresh, and otherwise runs fn.
// Concurrent callers for the same key share one call. fn runs on a context
// detached from ctx, so a caller that gives up does not cancel the read for
// the others, and its result still fills the cache.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.fresh(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := c.generation(key)

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		v, err := c.retry(detached, key, func(ctx context.Context) (any, error) { return fn(ctx) })
		if err != nil {
			return nil, err
		}
		c.store(key, v, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("querycache: %s holds %T", key, res.Val)
		}
		return t, nil
	}
}

func (c *Cache) retry(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	var (
		value    any
		attempts int
	)
	op := func() error {
		attempts++
		v, err := fn(ctx)
		if err == nil {
			value = v
			return nil
		}
		if c.opts.ShouldRetry == nil || !c.opts.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		slog.Warn("query failed", "key", key.String(), "attempt", attempts, "error", err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryDelay), uint64(max(c.opts.Retries, 0))),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return nil, perm.Err
		}
		return nil, err
	}
	return value, nil
}

func (c *Cache) generation(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest(key)
}

// latest is the newest invalidation covering key. Callers hold mu.
func (c *Cache) latest(key Key) uint64 {
	return max(c.keyGen[key], c.resourceGen[key.Resource], c.floor)
}

func (c *Cache) fresh(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.usedAt = now
	c.entries[key] = e
	if now.Sub(e.fetchedAt) >= c.opts.StaleTime {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key Key, v any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.latest(key) {
		return
	}
	now := c.now()
	c.entries[key] = entry{value: v, fetchedAt: now, usedAt: now}
}

// prune drops entries unused for longer than CacheTime. Callers hold mu.
func (c *Cache) prune(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.usedAt) > c.opts.CacheTime {
			delete(c.entries, k)
		}
	}
}

// Invalidate drops every entry matching keys. Reads already in flight for
// a matching key finish but do not repopulate the cache.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, pattern := range keys {
		if pattern.Parent == AnyParent {
			c.resourceGen[pattern.Resource] = c.gen
		} else {
			c.keyGen[pattern] = c.gen
		}
	}
	for k := range c.entries {
		for _, pattern := range keys {
			if k.matches(pattern) {
				delete(c.entries, k)
				break
			}
		}
	}
}

// Clear drops every entry, e.g. when the operator signs out. Reads in
// flight for any key, cached or not, finish without filling the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.floor = c.gen
	clear(c.entries)
	clear(c.keyGen)
	clear(c.resourceGen)
}

// Has reports whether key currently holds a value, fresh or stale.
func (c *Cache) Has(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Mutate runs a write once, without retry, and on success invalidates the
// keys the table declares for m.
func (c *Cache) Mutate(ctx context.Context, m Mutation, scope Scope, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	keys := Table.KeysFor(m, scope)
	c.Invalidate(keys...)
	slog.Debug("cache invalidated", "mutation", string(m), "keys", len(keys))
	return nil
}
