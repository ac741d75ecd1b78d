package prefs

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory implementation of Storage.
// Suitable for development and testing.
type MemoryStorage struct {
	masks map[int64]uint64
	mu    sync.RWMutex
}

// NewMemoryStorage creates a new in-memory preference storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{masks: make(map[int64]uint64)}
}

func (s *MemoryStorage) DisabledMask(ctx context.Context, userID int64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masks[userID], nil
}

func (s *MemoryStorage) SetDisabledMask(ctx context.Context, userID int64, mask uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mask == 0 {
		// Absence of an entry means "everything enabled".
		delete(s.masks, userID)
		return nil
	}
	s.masks[userID] = mask
	return nil
}
