package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hasan-mia/techstore-ui/internal/storage"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a process-local storage.KV for single-instance and development
// deployments. Expired entries are dropped on read and by DeleteExpired.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	nowFunc func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.nowFunc().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, storage.ErrNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = s.nowFunc().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// DeleteExpired drops every expired entry and returns how many were removed.
func (s *Store) DeleteExpired(context.Context) (int64, error) {
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
