// Package engine implements the loyalty ledger engine: accrual, redemption,
// balance projection and expiry sweeping over an append-only ledger. All
// operations against one (customer, program) partition are serialized through
// a per-partition lock so the read-validate-append sequence is atomic.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/program"
	"github.com/loyalty-ledger/internal/domain/reward"
	"github.com/loyalty-ledger/internal/domain/shared"
)

const defaultStoreTimeout = 5 * time.Second

// Engine coordinates the program registry, reward catalog and ledger store.
type Engine struct {
	programs     program.Repository
	rewards      reward.Repository
	entries      ledger.Repository
	locks        *partitionLocks
	storeTimeout time.Duration
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStoreTimeout bounds every store call; deadline hits surface as
// STORE_UNAVAILABLE instead of hanging the caller.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.storeTimeout = d
		}
	}
}

// New creates a loyalty ledger engine.
func New(logger *slog.Logger, programs program.Repository, rewards reward.Repository, entries ledger.Repository, opts ...Option) *Engine {
	e := &Engine{
		programs:     programs,
		rewards:      rewards,
		entries:      entries,
		locks:        newPartitionLocks(),
		storeTimeout: defaultStoreTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// storeCtx bounds a single store call.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storeTimeout)
}

// storeFailure classifies an error coming back from a repository. Domain
// errors pass through untouched; anything else is a transient store failure.
func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	var engineErr *shared.Error
	if errors.As(err, &engineErr) {
		return err
	}
	if errors.Is(err, ledger.ErrEntryNotFound{}) ||
		errors.Is(err, ledger.ErrDuplicateEntry{}) ||
		errors.Is(err, program.ErrProgramNotFound{}) ||
		errors.Is(err, reward.ErrRewardNotFound{}) {
		return err
	}
	return shared.WrapStoreUnavailable(err)
}

// loadLedger fetches the full ordered partition ledger.
func (e *Engine) loadLedger(ctx context.Context, customerID, programID uuid.UUID) ([]*ledger.Entry, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	entries, err := e.entries.ListByPartition(sctx, customerID, programID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return entries, nil
}

// appendEntry writes one ledger entry, translating duplicate-key collisions
// for the caller to resolve against the existing entry.
func (e *Engine) appendEntry(ctx context.Context, entry *ledger.Entry) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.entries.Append(sctx, entry); err != nil {
		return storeFailure(err)
	}
	return nil
}

// findByIdempotencyKey returns the prior entry for a key, or nil.
func (e *Engine) findByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	existing, err := e.entries.GetByIdempotencyKey(sctx, key)
	if err != nil {
		return nil, storeFailure(err)
	}
	return existing, nil
}
