package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/program"
	"github.com/loyalty-ledger/internal/domain/shared"
)

// Earn validates and records an accrual against a purchase. Validation order:
// program active, minimum purchase, daily cap, unit computation with
// multiplier windows, expiry stamping, idempotent append. Exactly one ledger
// entry is appended on success; no other state is mutated.
func (e *Engine) Earn(ctx context.Context, req *shared.EarnRequest) (*ledger.Entry, error) {
	if req.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("customer_id", "customer ID is required")
	}
	if req.ProgramID == uuid.Nil {
		return nil, shared.NewValidationError("program_id", "program ID is required")
	}
	if req.PurchaseAmount < 0 {
		return nil, shared.NewValidationError("purchase_amount", "purchase amount cannot be negative")
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
			if earnReplayMatches(existing, req) {
				return existing, nil
			}
			return nil, shared.NewError(shared.CodeConflict, "idempotency key reused with a different payload")
		}
	}

	prog, err := e.activeProgram(ctx, req.MerchantID, req.ProgramID)
	if err != nil {
		return nil, err
	}

	if req.PurchaseAmount < prog.MinPurchaseAmount {
		return nil, shared.NewError(shared.CodeBelowMinimumPurchase, "purchase amount is below the program minimum")
	}

	if prog.MaxRewardsPerDay != nil {
		dayStart, dayEnd := prog.DayBounds(occurredAt)
		sctx, cancel := e.storeCtx(ctx)
		count, err := e.entries.CountEarnsBetween(sctx, req.CustomerID, req.ProgramID, dayStart, dayEnd)
		cancel()
		if err != nil {
			return nil, storeFailure(err)
		}
		if count >= int64(*prog.MaxRewardsPerDay) {
			return nil, shared.NewError(shared.CodeDailyCapReached, "daily earn cap reached for this program")
		}
	}

	units := prog.UnitsFor(req.PurchaseAmount, occurredAt)

	var expiresAt *time.Time
	if prog.ExpiryDays > 0 {
		exp := occurredAt.AddDate(0, 0, prog.ExpiryDays)
		expiresAt = &exp
	}

	purchase := req.PurchaseAmount
	entry := &ledger.Entry{
		ID:             uuid.New(),
		MerchantID:     req.MerchantID,
		CustomerID:     req.CustomerID,
		ProgramID:      req.ProgramID,
		Kind:           ledger.KindEarn,
		Amount:         units,
		PurchaseAmount: &purchase,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  req.CorrelationID,
		OccurredAt:     occurredAt,
		ExpiresAt:      expiresAt,
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.appendEntry(ctx, entry); err != nil {
		return e.resolveDuplicateEarn(ctx, err, req)
	}

	e.logger.Info("Recorded earn entry",
		"entry_id", entry.ID.String(),
		"customer_id", req.CustomerID.String(),
		"program_id", req.ProgramID.String(),
		"amount", entry.Amount,
	)
	return entry, nil
}

// activeProgram fetches the program and enforces existence, merchant scope
// and active state. Missing and foreign programs are reported identically.
func (e *Engine) activeProgram(ctx context.Context, merchantID, programID uuid.UUID) (*program.Program, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	prog, err := e.programs.GetByID(sctx, programID)
	if err != nil {
		if errors.Is(err, program.ErrProgramNotFound{}) {
			return nil, shared.NewError(shared.CodeProgramInactive, "program does not exist or is inactive")
		}
		return nil, storeFailure(err)
	}
	if merchantID != uuid.Nil && prog.MerchantID != merchantID {
		return nil, shared.NewError(shared.CodeProgramInactive, "program does not exist or is inactive")
	}
	if !prog.IsActive {
		return nil, shared.NewError(shared.CodeProgramInactive, "program does not exist or is inactive")
	}
	return prog, nil
}

// resolveDuplicateEarn handles a racing append on the same idempotency key:
// an identical replay returns the original entry, a different payload is a
// conflict. A failed append never fabricates an entry.
func (e *Engine) resolveDuplicateEarn(ctx context.Context, appendErr error, req *shared.EarnRequest) (*ledger.Entry, error) {
	if !errors.Is(appendErr, ledger.ErrDuplicateEntry{}) {
		return nil, appendErr
	}
	existing, err := e.findByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil && earnReplayMatches(existing, req) {
		return existing, nil
	}
	return nil, shared.NewError(shared.CodeConflict, "idempotency key reused with a different payload")
}

func earnReplayMatches(existing *ledger.Entry, req *shared.EarnRequest) bool {
	if existing.Kind != ledger.KindEarn {
		return false
	}
	if existing.CustomerID != req.CustomerID || existing.ProgramID != req.ProgramID {
		return false
	}
	return existing.PurchaseAmount != nil && *existing.PurchaseAmount == req.PurchaseAmount
}
