package prefs

import "context"

// Storage persists per-user disabled-category masks. A user with no stored
// mask has everything enabled; implementations return 0 for such users
// rather than an error.
type Storage interface {
	// DisabledMask returns the user's disabled-category bitmask.
	DisabledMask(ctx context.Context, userID int64) (uint64, error)

	// SetDisabledMask replaces the user's disabled-category bitmask.
	SetDisabledMask(ctx context.Context, userID int64, mask uint64) error
}
