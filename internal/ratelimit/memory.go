package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is the process-local counter map. It is the default backend and
// a known scaling limitation: counts are not shared across instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	nowFunc func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore returns an empty store and starts a janitor that drops
// expired windows once a minute.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: map[string]entry{},
		nowFunc: time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor(time.Minute)
	return s
}

// Incr implements Store.
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		e = entry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = e
		return 1, e.resetAt, nil
	}
	e.count++
	s.entries[key] = e
	return e.count, e.resetAt, nil
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	for key, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, key)
		}
	}
}
