package messages

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrMessageNotFound is returned when a message is not found.
var ErrMessageNotFound = errors.New("message not found")

// Storage handles message persistence and retrieval.
type Storage interface {
	// Insert stores one message.
	Insert(ctx context.Context, msg Message) error

	// InsertBatch stores all messages in a single operation. Implementations
	// must fail the whole batch atomically; per-row isolation is handled one
	// level up by Store.CreateBulk.
	InsertBatch(ctx context.Context, msgs []Message) error

	// List returns non-deleted messages for a receiver, newest first.
	List(ctx context.Context, receiverID int64, opts ListOptions) ([]Message, error)

	// MarkRead marks the receiver's message(s) as read.
	MarkRead(ctx context.Context, receiverID int64, ids ...uuid.UUID) error

	// Delete soft-deletes the receiver's copy of the message(s). It returns
	// ErrMessageNotFound when no id matched a live row for the receiver.
	Delete(ctx context.Context, receiverID int64, ids ...uuid.UUID) error

	// CountUnread returns the unread count for a receiver.
	CountUnread(ctx context.Context, receiverID int64) (int, error)
}

// ListOptions provides filtering and pagination for listing messages.
type ListOptions struct {
	Limit      int  // Maximum number of messages to return (0 = no limit)
	Offset     int  // Number of messages to skip for pagination
	OnlyUnread bool // When true, only return unread messages
}
