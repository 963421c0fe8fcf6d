package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/program"
	"github.com/loyalty-ledger/internal/domain/reward"
	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/loyalty-ledger/internal/engine"
)

// ProgramService defines merchant-scoped program registry operations. Every
// read and write is bounded to the calling merchant; a program belonging to
// another merchant behaves exactly like a missing one.
type ProgramService interface {
	CreateProgram(ctx context.Context, p *program.Program) (*program.Program, error)
	GetProgram(ctx context.Context, merchantID, programID uuid.UUID) (*program.Program, error)
	ListPrograms(ctx context.Context, merchantID uuid.UUID) ([]*program.Program, error)
	UpdateProgram(ctx context.Context, p *program.Program) (*program.Program, error)
	DeactivateProgram(ctx context.Context, merchantID, programID uuid.UUID) error
}

// RewardService defines merchant-scoped reward catalog operations.
type RewardService interface {
	CreateReward(ctx context.Context, rw *reward.Reward) (*reward.Reward, error)
	ListRewards(ctx context.Context, merchantID, programID uuid.UUID) ([]*reward.Reward, error)
	UpdateReward(ctx context.Context, rw *reward.Reward) (*reward.Reward, error)
	SetRewardAvailability(ctx context.Context, merchantID, rewardID uuid.UUID, available bool) error
}

// LoyaltyService fronts the ledger engine for the HTTP layer: synchronous
// earn/redeem, async earn enqueueing, and read-side projections.
type LoyaltyService interface {
	// Earn records an accrual synchronously and returns the appended entry.
	Earn(ctx context.Context, request *shared.EarnRequest) (*ledger.Entry, error)

	// EnqueueEarn publishes an earn request for asynchronous processing.
	// Returns the existing entry when the idempotency key was already used.
	EnqueueEarn(ctx context.Context, request *shared.EarnRequest) (*ledger.Entry, error)

	// Redeem spends units against a reward and returns the appended entry.
	Redeem(ctx context.Context, request *shared.RedeemRequest) (*ledger.Entry, error)

	// GetBalance projects the current balance for a (customer, program) pair.
	GetBalance(ctx context.Context, customerID, programID uuid.UUID) (*engine.Balance, error)

	// GetEntry retrieves one ledger entry. Returns nil when not found.
	GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error)

	// ListEntries retrieves a newest-first page of a partition's history plus
	// the partition's total entry count.
	ListEntries(ctx context.Context, customerID, programID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)
}

// LedgerEngine is the subset of engine behavior the gateway depends on.
type LedgerEngine interface {
	Earn(ctx context.Context, request *shared.EarnRequest) (*ledger.Entry, error)
	Redeem(ctx context.Context, request *shared.RedeemRequest) (*ledger.Entry, error)
	Project(ctx context.Context, customerID, programID uuid.UUID, asOf time.Time) (*engine.Balance, error)
	RewardUnlocked(ctx context.Context, entry *ledger.Entry) (*engine.Balance, error)
}
