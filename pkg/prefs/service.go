package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/greenmiles/backend/pkg/cache"
	"github.com/greenmiles/backend/pkg/logger"
)

// EmailLookup resolves an account id by email address. Implementations
// return found=false when no account exists for the address.
type EmailLookup func(ctx context.Context, email string) (userID int64, found bool, err error)

// Change is one preference update entry.
type Change struct {
	Category Category `json:"category"`
	Enabled  bool     `json:"enabled"`
}

// Preference is one row of a user's preference listing.
type Preference struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Locked   bool     `json:"locked"`
	Enabled  bool     `json:"enabled"`
}

// Service answers "should this user get an email for this category" and
// manages per-user opt-outs.
//
// Reads fail open: unknown categories, missing accounts, and storage errors
// all answer "send". A notification must never be blocked by a
// classification or infrastructure error; the worst outcome of failing open
// is one extra email.
type Service struct {
	storage Storage
	lookup  EmailLookup
	cache   *cache.LRU[int64, uint64]
	log     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEmailLookup sets the account-by-email resolver used by
// ShouldSendByEmail. Without it every address resolves to "no account",
// which answers "send".
func WithEmailLookup(lookup EmailLookup) ServiceOption {
	return func(s *Service) {
		s.lookup = lookup
	}
}

// WithCacheSize sets the capacity of the process-local mask cache.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.cache = cache.NewLRU[int64, uint64](n)
		}
	}
}

const defaultCacheSize = 4096

// NewService creates a preference service backed by the given storage.
func NewService(storage Storage, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		cache:   cache.NewLRU[int64, uint64](defaultCacheSize),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldSend reports whether an email for the category may be sent to the
// user. Locked and unknown categories always answer true.
func (s *Service) ShouldSend(ctx context.Context, userID int64, category Category) bool {
	info, known := catalog[category]
	if !known || info.locked {
		return true
	}

	mask, err := s.disabledMask(ctx, userID)
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "preference read failed, failing open",
			logger.Component("prefs"),
			logger.UserID(userID),
			logger.Category(category),
			logger.Error(err),
		)
		return true
	}

	return mask&info.bit == 0
}

// ShouldSendByEmail resolves an account by email address first. Addresses
// without an account default to "send": external recipients have no
// preferences to consult.
func (s *Service) ShouldSendByEmail(ctx context.Context, email string, category Category) bool {
	if s.lookup == nil {
		return true
	}

	userID, found, err := s.lookup(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn, "email lookup failed, failing open",
			logger.Component("prefs"),
			logger.Recipient(email),
			logger.Error(err),
		)
		return true
	}
	if !found {
		return true
	}

	return s.ShouldSend(ctx, userID, category)
}

// Update applies preference changes for the user. Entries for locked or
// unknown categories are silently dropped; only the allowed optional set is
// ever persisted, so a crafted request cannot disable a locked category.
func (s *Service) Update(ctx context.Context, userID int64, changes []Change) error {
	mask, err := s.disabledMask(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load preferences for user %d: %w", userID, err)
	}

	for _, change := range changes {
		info, known := catalog[change.Category]
		if !known || info.locked {
			continue
		}
		if change.Enabled {
			mask &^= info.bit
		} else {
			mask |= info.bit
		}
	}

	// Guard against bits that predate a category becoming locked.
	mask &= optionalMask

	if err := s.storage.SetDisabledMask(ctx, userID, mask); err != nil {
		return fmt.Errorf("failed to store preferences for user %d: %w", userID, err)
	}

	// Only this user's cache entry goes stale; other processes keep their
	// cached value until it is evicted (accepted limitation).
	s.cache.Remove(userID)
	return nil
}

// ListForUser returns the full catalog with the user's current state.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Preference, error) {
	mask, err := s.disabledMask(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for user %d: %w", userID, err)
	}

	out := make([]Preference, 0, len(categories))
	for _, c := range categories {
		info := catalog[c]
		out = append(out, Preference{
			Category: c,
			Label:    info.label,
			Locked:   info.locked,
			Enabled:  info.locked || mask&info.bit == 0,
		})
	}
	return out, nil
}

func (s *Service) disabledMask(ctx context.Context, userID int64) (uint64, error) {
	if mask, ok := s.cache.Get(userID); ok {
		return mask, nil
	}

	mask, err := s.storage.DisabledMask(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.cache.Put(userID, mask)
	return mask, nil
}
