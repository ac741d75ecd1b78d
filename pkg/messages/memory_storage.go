package messages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of Storage.
// Suitable for development and testing.
type MemoryStorage struct {
	byReceiver map[int64][]Message
	mu         sync.RWMutex
}

// NewMemoryStorage creates a new in-memory message storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byReceiver: make(map[int64][]Message),
	}
}

func (s *MemoryStorage) Insert(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(msg)
}

func (s *MemoryStorage) InsertBatch(ctx context.Context, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch first so a failure leaves nothing behind,
	// matching the all-or-nothing contract of a multi-row insert.
	for _, msg := range msgs {
		if err := validate(msg); err != nil {
			return err
		}
	}
	for _, msg := range msgs {
		if err := s.insertLocked(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStorage) insertLocked(msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.byReceiver[msg.ReceiverID] = append(s.byReceiver[msg.ReceiverID], msg)
	return nil
}

func validate(msg Message) error {
	if msg.ID == uuid.Nil {
		return errors.New("message ID is required")
	}
	if msg.ReceiverID <= 0 {
		return errors.New("receiver ID is required")
	}
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, receiverID int64, opts ListOptions) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.byReceiver[receiverID]
	if !exists {
		return []Message{}, nil
	}

	var filtered []Message
	for _, m := range stored {
		if m.DeletedAt != nil {
			continue
		}
		if opts.OnlyUnread && m.Read {
			continue
		}
		filtered = append(filtered, m)
	}

	// Newest first.
	for i := 0; i < len(filtered)-1; i++ {
		for j := i + 1; j < len(filtered); j++ {
			if filtered[i].CreatedAt.Before(filtered[j].CreatedAt) {
				filtered[i], filtered[j] = filtered[j], filtered[i]
			}
		}
	}

	start := opts.Offset
	if start > len(filtered) {
		return []Message{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.byReceiver[receiverID]
	if !exists {
		return nil
	}

	idSet := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	for i := range stored {
		if idSet[stored[i].ID] && stored[i].DeletedAt == nil {
			stored[i].MarkAsRead()
		}
	}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.byReceiver[receiverID]
	if !exists {
		return ErrMessageNotFound
	}

	idSet := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	now := time.Now()
	deleted := 0
	for i := range stored {
		if idSet[stored[i].ID] && stored[i].DeletedAt == nil {
			stored[i].DeletedAt = &now
			deleted++
		}
	}
	if deleted == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.byReceiver[receiverID] {
		if !m.Read && m.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}
