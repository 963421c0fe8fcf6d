package engine

import (
	"context"
	"time"

	"github.com/loyalty-ledger/internal/domain/ledger"
)

// RewardUnlocked reports whether an earn entry pushed the partition's
// available balance across the program's reward threshold, returning the
// post-earn balance when it did and nil otherwise. Only the entry that
// performs the crossing reports a balance, so callers emit exactly one
// reward_unlocked notification per crossing.
func (e *Engine) RewardUnlocked(ctx context.Context, entry *ledger.Entry) (*Balance, error) {
	if entry == nil || entry.Kind != ledger.KindEarn || entry.Amount <= 0 {
		return nil, nil
	}

	sctx, cancel := e.storeCtx(ctx)
	p, err := e.programs.GetByID(sctx, entry.ProgramID)
	cancel()
	if err != nil {
		return nil, storeFailure(err)
	}
	if p.RewardThreshold <= 0 {
		return nil, nil
	}

	bal, err := e.Project(ctx, entry.CustomerID, entry.ProgramID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if bal.AvailableUnits >= p.RewardThreshold && bal.AvailableUnits-entry.Amount < p.RewardThreshold {
		return bal, nil
	}
	return nil, nil
}
