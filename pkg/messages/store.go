package messages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/greenmiles/backend/pkg/logger"
)

// Store orchestrates message persistence on top of a Storage backend. It
// owns ID/timestamp assignment and the bulk-insert fallback: a failed batch
// degrades to per-row inserts so one malformed row never drops an entire
// admin broadcast.
type Store struct {
	storage Storage
	log     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger for the Store.
func WithStoreLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a message store backed by the given storage.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a single message and returns it.
func (s *Store) Create(ctx context.Context, row Row) (*Message, error) {
	msg := s.build(row)
	if err := s.storage.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message for user %d: %w", row.ReceiverID, err)
	}
	return &msg, nil
}

// CreateBulk persists all rows. It first attempts a single batch insert; if
// the batch fails, the failure is logged and every row is inserted
// individually so a single bad row only loses itself. Per-row failures are
// logged and never returned: persistence problems must not surface to the
// business action that triggered the notification.
func (s *Store) CreateBulk(ctx context.Context, rows []Row) {
	if len(rows) == 0 {
		return
	}

	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, s.build(row))
	}

	err := s.storage.InsertBatch(ctx, msgs)
	if err == nil {
		return
	}

	s.log.LogAttrs(ctx, slog.LevelWarn, "bulk message insert failed, retrying rows individually",
		logger.Component("messages"),
		slog.Int("row_count", len(msgs)),
		logger.Error(err),
	)

	for _, msg := range msgs {
		if err := s.storage.Insert(ctx, msg); err != nil {
			s.log.LogAttrs(ctx, slog.LevelError, "failed to store message row",
				logger.Component("messages"),
				logger.MessageID(msg.ID),
				logger.UserID(msg.ReceiverID),
				logger.Error(err),
			)
		}
	}
}

func (s *Store) build(row Row) Message {
	priority := row.Priority
	if !priority.Valid() {
		priority = PriorityNormal
	}
	return Message{
		ID:         uuid.New(),
		ReceiverID: row.ReceiverID,
		SenderID:   row.SenderID,
		Title:      row.Title,
		Content:    row.Content,
		Priority:   priority,
		CreatedAt:  time.Now(),
	}
}

// List returns the receiver's messages, newest first.
func (s *Store) List(ctx context.Context, receiverID int64, opts ListOptions) ([]Message, error) {
	return s.storage.List(ctx, receiverID, opts)
}

// MarkRead marks the receiver's messages as read.
func (s *Store) MarkRead(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	return s.storage.MarkRead(ctx, receiverID, ids...)
}

// Delete soft-deletes the receiver's copies of the given messages.
func (s *Store) Delete(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	return s.storage.Delete(ctx, receiverID, ids...)
}

// CountUnread returns the receiver's unread count.
func (s *Store) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	return s.storage.CountUnread(ctx, receiverID)
}
