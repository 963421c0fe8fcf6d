package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/shared"
)

func earnEntry(customerID, programID uuid.UUID, amount int64, occurredAt time.Time, expiresAt *time.Time) *ledger.Entry {
	return &ledger.Entry{
		ID:         uuid.New(),
		MerchantID: uuid.New(),
		CustomerID: customerID,
		ProgramID:  programID,
		Kind:       ledger.KindEarn,
		Amount:     amount,
		OccurredAt: occurredAt,
		ExpiresAt:  expiresAt,
		CreatedAt:  occurredAt,
	}
}

func TestProjectLedger(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	customerID := uuid.New()
	programID := uuid.New()

	t.Run("EmptyLedgerYieldsZeroBalance", func(t *testing.T) {
		bal, buckets := projectLedger(nil, base)

		assert.Zero(t, bal.AvailableUnits)
		assert.Zero(t, bal.LifetimeEarned)
		assert.Zero(t, bal.LifetimeRedeemed)
		assert.Nil(t, bal.NextExpiry)
		assert.Empty(t, buckets)
	})

	t.Run("EarnsAccumulate", func(t *testing.T) {
		entries := []*ledger.Entry{
			earnEntry(customerID, programID, 10, base, nil),
			earnEntry(customerID, programID, 5, base.Add(time.Hour), nil),
		}

		bal, _ := projectLedger(entries, base.Add(2*time.Hour))

		assert.Equal(t, int64(15), bal.AvailableUnits)
		assert.Equal(t, int64(15), bal.LifetimeEarned)
		assert.Nil(t, bal.NextExpiry)
	})

	t.Run("RedeemDrawsFromSoonestExpiringBucketFirst", func(t *testing.T) {
		// 10 units expiring soon, 5 units expiring later; an 8-unit redeem
		// must consume the soon-expiring bucket first so that only its
		// 2-unit remainder can ever expire.
		soon := base.AddDate(0, 0, 7)
		later := base.AddDate(0, 0, 30)
		first := earnEntry(customerID, programID, 10, base, &soon)
		second := earnEntry(customerID, programID, 5, base.Add(time.Hour), &later)
		redeem := &ledger.Entry{
			ID:         uuid.New(),
			CustomerID: customerID,
			ProgramID:  programID,
			Kind:       ledger.KindRedeem,
			Amount:     -8,
			OccurredAt: base.Add(2 * time.Hour),
			CreatedAt:  base.Add(2 * time.Hour),
		}

		bal, buckets := projectLedger([]*ledger.Entry{first, second, redeem}, base.Add(3*time.Hour))

		assert.Equal(t, int64(7), bal.AvailableUnits)
		assert.Equal(t, int64(15), bal.LifetimeEarned)
		assert.Equal(t, int64(8), bal.LifetimeRedeemed)
		assert.Equal(t, soon, *bal.NextExpiry)

		remaining := map[uuid.UUID]int64{}
		for _, b := range buckets {
			remaining[b.entryID] = b.remaining
		}
		assert.Equal(t, int64(2), remaining[first.ID])
		assert.Equal(t, int64(5), remaining[second.ID])
	})

	t.Run("DueBucketsExcludedBeforeSweep", func(t *testing.T) {
		soon := base.AddDate(0, 0, 7)
		later := base.AddDate(0, 0, 30)
		entries := []*ledger.Entry{
			earnEntry(customerID, programID, 10, base, &soon),
			earnEntry(customerID, programID, 5, base.Add(time.Hour), &later),
		}

		// Projection after the first bucket's expiry but before the sweeper
		// has appended its expire entry.
		bal, _ := projectLedger(entries, soon.Add(time.Hour))

		assert.Equal(t, int64(5), bal.AvailableUnits)
		assert.Equal(t, later, *bal.NextExpiry)
	})

	t.Run("ExpireEntryZeroesSourceBucketOnly", func(t *testing.T) {
		soon := base.AddDate(0, 0, 7)
		first := earnEntry(customerID, programID, 10, base, &soon)
		second := earnEntry(customerID, programID, 5, base.Add(time.Hour), nil)
		expire := &ledger.Entry{
			ID:            uuid.New(),
			CustomerID:    customerID,
			ProgramID:     programID,
			Kind:          ledger.KindExpire,
			Amount:        -10,
			SourceEntryID: &first.ID,
			OccurredAt:    soon,
			CreatedAt:     soon,
		}

		bal, _ := projectLedger([]*ledger.Entry{first, second, expire}, soon.Add(time.Hour))

		assert.Equal(t, int64(5), bal.AvailableUnits)
		// Lifetime earned is history; expiry never rewrites it.
		assert.Equal(t, int64(15), bal.LifetimeEarned)
		assert.Zero(t, bal.LifetimeRedeemed)
	})

	t.Run("NegativeAdjustDrawsPositiveAdjustGrants", func(t *testing.T) {
		entries := []*ledger.Entry{
			earnEntry(customerID, programID, 10, base, nil),
			{
				ID:         uuid.New(),
				CustomerID: customerID,
				ProgramID:  programID,
				Kind:       ledger.KindAdjust,
				Amount:     3,
				OccurredAt: base.Add(time.Hour),
				CreatedAt:  base.Add(time.Hour),
			},
			{
				ID:         uuid.New(),
				CustomerID: customerID,
				ProgramID:  programID,
				Kind:       ledger.KindAdjust,
				Amount:     -4,
				OccurredAt: base.Add(2 * time.Hour),
				CreatedAt:  base.Add(2 * time.Hour),
			},
		}

		bal, _ := projectLedger(entries, base.Add(3*time.Hour))

		assert.Equal(t, int64(9), bal.AvailableUnits)
		assert.Equal(t, int64(10), bal.LifetimeEarned)
		assert.Zero(t, bal.LifetimeRedeemed)
	})

	t.Run("NeverExpiringBucketsDrawnLast", func(t *testing.T) {
		soon := base.AddDate(0, 0, 7)
		expiring := earnEntry(customerID, programID, 5, base.Add(time.Hour), &soon)
		forever := earnEntry(customerID, programID, 5, base, nil)
		redeem := &ledger.Entry{
			ID:         uuid.New(),
			CustomerID: customerID,
			ProgramID:  programID,
			Kind:       ledger.KindRedeem,
			Amount:     -5,
			OccurredAt: base.Add(2 * time.Hour),
			CreatedAt:  base.Add(2 * time.Hour),
		}

		// The never-expiring bucket occurred first, but the expiring one is
		// consumed ahead of it.
		_, buckets := projectLedger([]*ledger.Entry{forever, expiring, redeem}, base.Add(3*time.Hour))

		remaining := map[uuid.UUID]int64{}
		for _, b := range buckets {
			remaining[b.entryID] = b.remaining
		}
		assert.Equal(t, int64(0), remaining[expiring.ID])
		assert.Equal(t, int64(5), remaining[forever.ID])
	})

	t.Run("EqualExpiryTieBrokenByOccurredAt", func(t *testing.T) {
		exp := base.AddDate(0, 0, 7)
		older := earnEntry(customerID, programID, 4, base, &exp)
		newer := earnEntry(customerID, programID, 4, base.Add(time.Hour), &exp)
		redeem := &ledger.Entry{
			ID:         uuid.New(),
			CustomerID: customerID,
			ProgramID:  programID,
			Kind:       ledger.KindRedeem,
			Amount:     -4,
			OccurredAt: base.Add(2 * time.Hour),
			CreatedAt:  base.Add(2 * time.Hour),
		}

		_, buckets := projectLedger([]*ledger.Entry{older, newer, redeem}, base.Add(3*time.Hour))

		remaining := map[uuid.UUID]int64{}
		for _, b := range buckets {
			remaining[b.entryID] = b.remaining
		}
		assert.Equal(t, int64(0), remaining[older.ID])
		assert.Equal(t, int64(4), remaining[newer.ID])
	})
}

func TestEngineProject(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	customerID := uuid.New()
	programID := uuid.New()

	t.Run("ProjectsStoredPartition", func(t *testing.T) {
		h := newTestHarness()
		soon := base.AddDate(0, 0, 7)
		for _, en := range []*ledger.Entry{
			earnEntry(customerID, programID, 10, base, &soon),
			earnEntry(customerID, programID, 5, base.Add(time.Hour), nil),
		} {
			assert.NoError(t, h.ledgerStore.Append(context.Background(), en))
		}

		bal, err := h.engine.Project(context.Background(), customerID, programID, base.Add(2*time.Hour))

		assert.NoError(t, err)
		assert.Equal(t, customerID, bal.CustomerID)
		assert.Equal(t, programID, bal.ProgramID)
		assert.Equal(t, int64(15), bal.AvailableUnits)
		assert.Equal(t, soon, *bal.NextExpiry)
	})

	t.Run("EmptyPartitionYieldsZeroBalance", func(t *testing.T) {
		h := newTestHarness()

		bal, err := h.engine.Project(context.Background(), uuid.New(), uuid.New(), base)

		assert.NoError(t, err)
		assert.Zero(t, bal.AvailableUnits)
		assert.Zero(t, bal.LifetimeEarned)
	})

	t.Run("StoreFailureSurfacesAsUnavailable", func(t *testing.T) {
		h := newTestHarness()
		h.ledgerStore.listErr = assert.AnError

		_, err := h.engine.Project(context.Background(), customerID, programID, base)

		assert.Error(t, err)
		code, ok := shared.CodeOf(err)
		assert.True(t, ok)
		assert.Equal(t, shared.CodeStoreUnavailable, code)
	})
}
