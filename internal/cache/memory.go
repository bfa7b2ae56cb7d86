package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Client for single-node deployments and tests.
type Memory struct {
	mu         sync.RWMutex
	data       map[string]entry
	maxEntries int
	now        func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemory creates an in-memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultConfig().MaxEntries
	}
	return &Memory{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get retrieves a value.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || e.expired(c.now()) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value; a zero ttl never expires.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxEntries {
		c.evict(now)
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.data[key] = e
	return nil
}

// Delete removes a value.
func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close is a no-op.
func (c *Memory) Close() error { return nil }

// evict drops expired entries, or the one expiring soonest when none has.
func (c *Memory) evict(now time.Time) {
	var (
		victim string
		soon   time.Time
	)
	for key, e := range c.data {
		if e.expired(now) {
			delete(c.data, key)
			continue
		}
		if e.expiresAt.IsZero() {
			if victim == "" {
				victim = key
			}
			continue
		}
		if soon.IsZero() || e.expiresAt.Before(soon) {
			victim, soon = key, e.expiresAt
		}
	}
	if len(c.data) >= c.maxEntries && victim != "" {
		delete(c.data, victim)
	}
}
