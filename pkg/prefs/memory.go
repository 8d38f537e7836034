package prefs

import (
	"context"
	"time"
)

// DefaultMemoryCapacity bounds MemoryStore when no capacity is given.
const DefaultMemoryCapacity = 1024

// MemoryStore keeps markers in a bounded LRU.
type MemoryStore struct {
	cache *lruCache[string, time.Time]
}

// NewMemoryStore creates a store holding at most capacity markers.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{cache: newLRUCache[string, time.Time](capacity)}
}

func (s *MemoryStore) MarkOnboarded(_ context.Context, email string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	s.cache.put(key, time.Now())
	return nil
}

func (s *MemoryStore) Onboarded(_ context.Context, email string) (bool, error) {
	key, err := NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	_, ok := s.cache.get(key)
	return ok, nil
}

func (s *MemoryStore) ClearOnboarding(_ context.Context, email string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	s.cache.remove(key)
	return nil
}

// Len returns the number of stored markers.
func (s *MemoryStore) Len() int {
	return s.cache.len()
}
