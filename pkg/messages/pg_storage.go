package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStorage is the PostgreSQL implementation of Storage on top of a pgx pool.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a PostgreSQL-backed message storage.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

const insertMessageSQL = `
INSERT INTO messages (id, receiver_id, sender_id, title, content, priority, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (s *PgStorage) Insert(ctx context.Context, msg Message) error {
	_, err := s.pool.Exec(ctx, insertMessageSQL,
		msg.ID, msg.ReceiverID, msg.SenderID, msg.Title, msg.Content, msg.Priority, msg.Read, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// InsertBatch stores all messages with one multi-row INSERT so the batch is
// atomic: either every row lands or none do.
func (s *PgStorage) InsertBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(msgs)*8)
	)
	sb.WriteString("INSERT INTO messages (id, receiver_id, sender_id, title, content, priority, read, created_at) VALUES ")
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args, msg.ID, msg.ReceiverID, msg.SenderID, msg.Title, msg.Content, msg.Priority, msg.Read, msg.CreatedAt)
	}

	if _, err := s.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert message batch of %d: %w", len(msgs), err)
	}
	return nil
}

func (s *PgStorage) List(ctx context.Context, receiverID int64, opts ListOptions) ([]Message, error) {
	query := `
SELECT id, receiver_id, sender_id, title, content, priority, read, read_at, created_at
FROM messages
WHERE receiver_id = $1 AND deleted_at IS NULL`
	args := []any{receiverID}

	if opts.OnlyUnread {
		query += " AND read = FALSE"
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ReceiverID, &m.SenderID, &m.Title, &m.Content,
			&m.Priority, &m.Read, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PgStorage) MarkRead(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
UPDATE messages SET read = TRUE, read_at = NOW()
WHERE receiver_id = $1 AND id = ANY($2) AND deleted_at IS NULL`, receiverID, ids)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}

// Delete soft-deletes the receiver's copies. The rows stay in place so other
// readers' copies and audit history are untouched.
func (s *PgStorage) Delete(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE messages SET deleted_at = NOW()
WHERE receiver_id = $1 AND id = ANY($2) AND deleted_at IS NULL`, receiverID, ids)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *PgStorage) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM messages
WHERE receiver_id = $1 AND read = FALSE AND deleted_at IS NULL`, receiverID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}
