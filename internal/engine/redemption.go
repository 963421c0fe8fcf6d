package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/reward"
	"github.com/loyalty-ledger/internal/domain/shared"
)

// Redeem validates and records a spend against a reward. The sufficiency
// check and the append happen under the partition lock, so two concurrent
// redemptions cannot both pass against a balance that only supports one.
// No partial redemption: the reward's full cost is drawn or nothing is.
func (e *Engine) Redeem(ctx context.Context, req *shared.RedeemRequest) (*ledger.Entry, error) {
	if req.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("customer_id", "customer ID is required")
	}
	if req.ProgramID == uuid.Nil {
		return nil, shared.NewValidationError("program_id", "program ID is required")
	}
	if req.RewardID == uuid.Nil {
		return nil, shared.NewValidationError("reward_id", "reward ID is required")
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	unlock := e.locks.acquire(ledger.Partition{CustomerID: req.CustomerID, ProgramID: req.ProgramID})
	defer unlock()

	if req.IdempotencyKey != "" {
		existing, err := e.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if redeemReplayMatches(existing, req) {
				return existing, nil
			}
			return nil, shared.NewError(shared.CodeConflict, "idempotency key reused with a different payload")
		}
	}

	if _, err := e.activeProgram(ctx, req.MerchantID, req.ProgramID); err != nil {
		// An inactive or missing program makes the reward unavailable.
		if code, ok := shared.CodeOf(err); ok && code == shared.CodeProgramInactive {
			return nil, shared.NewError(shared.CodeRewardUnavailable, "reward is not available")
		}
		return nil, err
	}

	rw, err := e.availableReward(ctx, req.ProgramID, req.RewardID)
	if err != nil {
		return nil, err
	}

	entries, err := e.loadLedger(ctx, req.CustomerID, req.ProgramID)
	if err != nil {
		return nil, err
	}
	bal, _ := projectLedger(entries, occurredAt)
	if bal.AvailableUnits < rw.UnitsRequired {
		return nil, shared.NewError(shared.CodeInsufficientBalance, "balance does not cover the reward cost")
	}

	rewardID := req.RewardID
	entry := &ledger.Entry{
		ID:             uuid.New(),
		MerchantID:     req.MerchantID,
		CustomerID:     req.CustomerID,
		ProgramID:      req.ProgramID,
		Kind:           ledger.KindRedeem,
		Amount:         -rw.UnitsRequired,
		RewardID:       &rewardID,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  req.CorrelationID,
		OccurredAt:     occurredAt,
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.appendEntry(ctx, entry); err != nil {
		return e.resolveDuplicateRedeem(ctx, err, req)
	}

	e.logger.Info("Recorded redeem entry",
		"entry_id", entry.ID.String(),
		"customer_id", req.CustomerID.String(),
		"program_id", req.ProgramID.String(),
		"reward_id", req.RewardID.String(),
		"amount", entry.Amount,
	)
	return entry, nil
}

// availableReward enforces reward existence, program scope and availability.
func (e *Engine) availableReward(ctx context.Context, programID, rewardID uuid.UUID) (*reward.Reward, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	rw, err := e.rewards.GetByID(sctx, rewardID)
	if err != nil {
		if errors.Is(err, reward.ErrRewardNotFound{}) {
			return nil, shared.NewError(shared.CodeRewardUnavailable, "reward is not available")
		}
		return nil, storeFailure(err)
	}
	if rw.ProgramID != programID || !rw.IsAvailable {
		return nil, shared.NewError(shared.CodeRewardUnavailable, "reward is not available")
	}
	return rw, nil
}

func (e *Engine) resolveDuplicateRedeem(ctx context.Context, appendErr error, req *shared.RedeemRequest) (*ledger.Entry, error) {
	if !errors.Is(appendErr, ledger.ErrDuplicateEntry{}) {
		return nil, appendErr
	}
	existing, err := e.findByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil && redeemReplayMatches(existing, req) {
		return existing, nil
	}
	return nil, shared.NewError(shared.CodeConflict, "idempotency key reused with a different payload")
}

func redeemReplayMatches(existing *ledger.Entry, req *shared.RedeemRequest) bool {
	if existing.Kind != ledger.KindRedeem {
		return false
	}
	if existing.CustomerID != req.CustomerID || existing.ProgramID != req.ProgramID {
		return false
	}
	return existing.RewardID != nil && *existing.RewardID == req.RewardID
}
