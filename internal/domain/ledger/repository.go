package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages append-only ledger entry persistence. Implementations
// never expose update or delete of entries.
type Repository interface {
	// Append writes a new entry. Returns ErrDuplicateEntry when an entry
	// with the same idempotency key (or entry ID) already exists.
	Append(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, entryID uuid.UUID) (*Entry, error)
	// GetByIdempotencyKey returns nil, nil when no entry carries the key.
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Entry, error)
	// ListByPartition returns the full partition ledger ordered by
	// occurred_at, ties broken by insertion order (created_at).
	ListByPartition(ctx context.Context, customerID, programID uuid.UUID) ([]*Entry, error)
	// ListByPartitionPage returns a newest-first page for history displays.
	ListByPartitionPage(ctx context.Context, customerID, programID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByPartition(ctx context.Context, customerID, programID uuid.UUID) (int64, error)
	// CountEarnsBetween counts earn entries in [from, to), used for daily caps.
	CountEarnsBetween(ctx context.Context, customerID, programID uuid.UUID, from, to time.Time) (int64, error)
	// ListExpiringPartitions returns distinct partitions holding earn entries
	// whose expires_at is due as of asOf.
	ListExpiringPartitions(ctx context.Context, asOf time.Time, limit int) ([]Partition, error)
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates an idempotency key or entry ID collision
type ErrDuplicateEntry struct {
	EntryID        uuid.UUID
	IdempotencyKey string
}

func (e ErrDuplicateEntry) Error() string {
	if e.IdempotencyKey != "" {
		return "duplicate ledger entry for idempotency key: " + e.IdempotencyKey
	}
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil && t.IdempotencyKey == "" {
		return true
	}
	return e.EntryID == t.EntryID || (e.IdempotencyKey != "" && e.IdempotencyKey == t.IdempotencyKey)
}
