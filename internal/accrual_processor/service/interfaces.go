package service

import (
	"context"

	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/loyalty-ledger/internal/engine"
)

// ProcessingService defines the interface for processing earn requests.
type ProcessingService interface {
	ProcessEarn(ctx context.Context, request *shared.EarnRequest) error
}

// LoyaltyEngine is the subset of engine behavior the processor depends on.
type LoyaltyEngine interface {
	Earn(ctx context.Context, request *shared.EarnRequest) (*ledger.Entry, error)
	RewardUnlocked(ctx context.Context, entry *ledger.Entry) (*engine.Balance, error)
}
