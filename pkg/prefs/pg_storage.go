package prefs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenmiles/backend/pkg/pg"
)

// PgStorage is the PostgreSQL implementation of Storage. One row per user
// holds the packed disabled-category mask.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a PostgreSQL-backed preference storage.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

func (s *PgStorage) DisabledMask(ctx context.Context, userID int64) (uint64, error) {
	var mask int64
	err := s.pool.QueryRow(ctx,
		`SELECT disabled_mask FROM notification_prefs WHERE user_id = $1`, userID).Scan(&mask)
	if pg.IsNotFoundError(err) {
		// No row means no opt-outs.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load preference mask: %w", err)
	}
	return uint64(mask), nil
}

func (s *PgStorage) SetDisabledMask(ctx context.Context, userID int64, mask uint64) error {
	if mask == 0 {
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM notification_prefs WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear preference mask: %w", err)
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO notification_prefs (user_id, disabled_mask, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET disabled_mask = EXCLUDED.disabled_mask, updated_at = NOW()`,
		userID, int64(mask))
	if err != nil {
		return fmt.Errorf("store preference mask: %w", err)
	}
	return nil
}

// PgEmailLookup resolves account ids through the users table. It backs
// ShouldSendByEmail in processes that hold a database connection, such as
// the email worker.
func PgEmailLookup(pool *pgxpool.Pool) EmailLookup {
	return func(ctx context.Context, email string) (int64, bool, error) {
		var userID int64
		err := pool.QueryRow(ctx,
			`SELECT id FROM users WHERE lower(email) = lower($1)`, email).Scan(&userID)
		if pg.IsNotFoundError(err) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("lookup user by email: %w", err)
		}
		return userID, true, nil
	}
}
