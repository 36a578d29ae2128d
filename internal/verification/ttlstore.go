// Package verification implements one-time numeric codes for proving
// ownership of a contact address during account creation, backed by an
// ephemeral key-value store with per-key TTLs.
package verification

import (
	"sync"
	"time"
)

// Store is an ephemeral key-value store with per-key TTLs. Expiry is
// time-driven only; there is no explicit cancellation.
type Store interface {
	// Put writes value under key for ttl, replacing any prior entry.
	Put(key, value string, ttl time.Duration)
	// Get returns the live value for key. Returns ok false if missing or expired.
	Get(key string) (value string, ok bool)
	// GetDel atomically reads and removes the live value for key. Of two
	// concurrent calls on the same key, exactly one observes the value.
	GetDel(key string) (value string, ok bool)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory TTL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Put writes value under key for ttl, replacing any prior entry.
func (s *MemoryStore) Put(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = entry{value: value, expiresAt: s.nowF().Add(ttl)}
}

// Get returns the live value for key if present and not expired.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return "", false
	}
	return e.value, true
}

// GetDel reads and removes the live value for key in one critical section.
func (s *MemoryStore) GetDel(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return "", false
	}
	delete(s.m, key)
	if !e.expiresAt.After(s.nowF()) {
		return "", false
	}
	return e.value, true
}
