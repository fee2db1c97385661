package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Entry is one cached value together with the time it was fetched.
// Entries are never mutated after Put; a new Put replaces the pointer.
type Entry[V any] struct {
	Key       string
	Value     V
	FetchedAt time.Time
}

// Age returns how old the entry is at now.
func (e *Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[V]
}

// TTL is an in-memory cache with lazy expiry on read and explicit Sweep for
// compaction. Keys are spread over independently locked shards.
// It is safe for concurrent use by multiple goroutines.
type TTL[V any] struct {
	ttl    time.Duration
	shards []*shard[V]
	now    func() time.Time
}

type Option func(*options)

type options struct {
	shards int
	now    func() time.Time
}

// WithShards sets the number of independently locked shards.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a cache whose entries are considered stale once they are ttl old.
func New[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{shards: 16, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTL[V]{
		ttl:    ttl,
		shards: make([]*shard[V], o.shards),
		now:    o.now,
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[string]*Entry[V])}
	}
	return c
}

func (c *TTL[V]) shardFor(key string) *shard[V] {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// TTL returns the configured time-to-live.
func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key if present and younger than the TTL.
// Stale entries are reported as absent but left in place for Sweep.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.Entry(key)
	if !ok || e.Age(c.now()) >= c.ttl {
		return zero, false
	}
	return e.Value, true
}

// Entry returns the raw entry for key, stale or not.
func (c *TTL[V]) Entry(key string) (*Entry[V], bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put stores value under key with the current time, replacing any prior entry.
func (c *TTL[V]) Put(key string, value V) {
	e := &Entry[V]{Key: key, Value: value, FetchedAt: c.now()}
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Sweep removes every entry whose age at now is at least the TTL and returns
// how many were removed.
func (c *TTL[V]) Sweep(now time.Time) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if e.Age(now) >= c.ttl {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of stored entries, including stale ones not yet swept.
func (c *TTL[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Keys returns every stored key in sorted order.
func (c *TTL[V]) Keys() []string {
	keys := make([]string, 0, c.Len())
	for _, s := range c.shards {
		s.mu.RLock()
		for key := range s.entries {
			keys = append(keys, key)
		}
		s.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}
