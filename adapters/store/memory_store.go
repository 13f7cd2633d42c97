package store

import (
	"context"
	"sync"
	"time"

	"github.com/runash/turnauth/ports"
)

type window struct {
	count     int
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Limiter interface
type MemoryStore struct {
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory limiter
func NewMemoryStore() ports.Limiter {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow increments the counter for key and reports whether it is still within limit
func (s *MemoryStore) Allow(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w, exists := s.windows[key]
	if !exists {
		w = &window{expiresAt: now.Add(ttl)}
		s.windows[key] = w
	}
	w.count++

	return w.count <= limit, nil
}

// sweep drops expired windows. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
		}
	}
}
