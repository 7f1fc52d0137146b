// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/modmail/internal/domain"
)

// ErrStorage wraps every persistence failure. Callers treat it as
// "operation not completed".
var ErrStorage = errors.New("storage error")

// IgnoreStore is the persisted set of ignored users. It is the only source of
// truth for admission decisions.
type IgnoreStore interface {
	// IsIgnored returns the entry for userID, or nil when the user is not ignored.
	IsIgnored(ctx context.Context, userID uint64) (*domain.IgnoreEntry, error)

	// AddIgnore inserts a new entry. It returns false without touching the
	// existing row when the user is already ignored.
	AddIgnore(ctx context.Context, userID uint64, reason *string, quiet bool) (bool, error)

	// RemoveIgnore deletes the entry and reports whether a row was removed.
	RemoveIgnore(ctx context.Context, userID uint64) (bool, error)

	// ListIgnored returns all entries ordered by user ID.
	ListIgnored(ctx context.Context) ([]domain.IgnoreEntry, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
