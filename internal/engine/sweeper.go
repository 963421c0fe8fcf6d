package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
)

// SweepDue expires stale unredeemed buckets across all partitions with earn
// entries due as of asOf. Returns the number of entries expired. Idempotent:
// remainders are derived from the ledger each run and expire appends are
// keyed per source entry, so re-running for the same asOf changes nothing.
func (e *Engine) SweepDue(ctx context.Context, asOf time.Time, batchSize int) (int, error) {
	sctx, cancel := e.storeCtx(ctx)
	partitions, err := e.entries.ListExpiringPartitions(sctx, asOf, batchSize)
	cancel()
	if err != nil {
		return 0, storeFailure(err)
	}

	total := 0
	for _, part := range partitions {
		n, err := e.SweepPartition(ctx, part, asOf)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SweepPartition expires due buckets in one partition, serialized through the
// same per-partition lock as accrual and redemption.
func (e *Engine) SweepPartition(ctx context.Context, part ledger.Partition, asOf time.Time) (int, error) {
	unlock := e.locks.acquire(part)
	defer unlock()

	entries, err := e.loadLedger(ctx, part.CustomerID, part.ProgramID)
	if err != nil {
		return 0, err
	}
	_, buckets := projectLedger(entries, asOf)

	expired := 0
	for _, b := range buckets {
		if b.remaining <= 0 || b.expiresAt == nil || b.expiresAt.After(asOf) {
			continue
		}

		sourceID := b.entryID
		entry := &ledger.Entry{
			ID:             uuid.New(),
			MerchantID:     merchantOf(entries, sourceID),
			CustomerID:     part.CustomerID,
			ProgramID:      part.ProgramID,
			Kind:           ledger.KindExpire,
			Amount:         -b.remaining,
			SourceEntryID:  &sourceID,
			IdempotencyKey: "expire:" + sourceID.String(),
			OccurredAt:     *b.expiresAt,
			CreatedAt:      time.Now().UTC(),
		}

		if err := e.appendEntry(ctx, entry); err != nil {
			// A concurrent sweeper already expired this bucket.
			if errors.Is(err, ledger.ErrDuplicateEntry{}) {
				continue
			}
			return expired, err
		}
		expired++

		e.logger.Info("Expired ledger bucket",
			"entry_id", entry.ID.String(),
			"source_entry_id", sourceID.String(),
			"customer_id", part.CustomerID.String(),
			"program_id", part.ProgramID.String(),
			"amount", entry.Amount,
		)
	}
	return expired, nil
}

// merchantOf finds the merchant scope of the earn entry being expired.
func merchantOf(entries []*ledger.Entry, entryID uuid.UUID) uuid.UUID {
	for _, en := range entries {
		if en.ID == entryID {
			return en.MerchantID
		}
	}
	return uuid.Nil
}
