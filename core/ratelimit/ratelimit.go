// Package ratelimit implements a best-effort sliding-window limiter.
//
// It is in-process and non-distributed: a restart or horizontal scale-out
// resets or fragments the counts. Good enough for abuse mitigation, not for
// hard quota enforcement.
package ratelimit

import (
	"sync"
	"time"
)

type (
	// Store keeps the timestamp lists per key. It is injected so the limiter
	// lifecycle is explicit instead of hiding module-level state.
	Store interface {
		Get(key string) []time.Time
		Put(key string, stamps []time.Time)
	}

	Limiter struct {
		mu     sync.Mutex
		store  Store
		max    int
		window time.Duration
	}

	Decision struct {
		Allowed    bool
		Remaining  int
		RetryAfter time.Duration // > 0 only on rejection
	}
)

func New(store Store, maxCalls int, window time.Duration) *Limiter {
	return &Limiter{store: store, max: maxCalls, window: window}
}

// Allow records a hit for key at now and reports whether it fits the window.
// On rejection, RetryAfter is the time until the oldest in-window hit expires.
// The prune/append sequence holds the limiter lock so concurrent handlers
// sharing a key never interleave, and stamps are filtered into a fresh slice
// so the list held by the store is never rewritten in place.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)

	stamps := l.store.Get(key)
	kept := make([]time.Time, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.store.Put(key, kept)
		return Decision{
			Allowed:    false,
			RetryAfter: l.window - now.Sub(kept[0]),
		}
	}

	kept = append(kept, now)
	l.store.Put(key, kept)
	return Decision{Allowed: true, Remaining: l.max - len(kept)}
}

// MemStore is the default in-process Store.
type MemStore struct {
	mu sync.Mutex
	m  map[string][]time.Time
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]time.Time)}
}

func (s *MemStore) Get(key string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key]
}

func (s *MemStore) Put(key string, stamps []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(stamps) == 0 {
		delete(s.m, key)
		return
	}
	s.m[key] = stamps
}
