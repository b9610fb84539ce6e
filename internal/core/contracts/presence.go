package contracts

import (
	"context"
	"time"

	"chatrelay/internal/core/domain"
)

// PresenceMirror publishes who is online to an external store so the
// user-management collaborator can read it. The in-memory registry stays the
// source of truth.
type PresenceMirror interface {
	// Sync replaces the mirrored online set with entries, expiring after ttl.
	Sync(ctx context.Context, entries []domain.PresenceEntry, ttl time.Duration) error
	// Online returns the identities currently mirrored.
	Online(ctx context.Context) ([]string, error)
	// Clear removes the mirrored set.
	Clear(ctx context.Context) error
}
