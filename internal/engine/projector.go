package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
)

// Balance is the derived state of one (customer, program) partition. It is
// never persisted as a source of truth; callers re-project after writes.
type Balance struct {
	CustomerID       uuid.UUID  `json:"customer_id"`
	ProgramID        uuid.UUID  `json:"program_id"`
	AvailableUnits   int64      `json:"available_units"`
	LifetimeEarned   int64      `json:"lifetime_earned"`
	LifetimeRedeemed int64      `json:"lifetime_redeemed"`
	NextExpiry       *time.Time `json:"next_expiry,omitempty"`
	AsOf             time.Time  `json:"as_of"`
}

// bucket tracks the unconsumed remainder of one earn (or positive adjust)
// entry, tagged with its expiry.
type bucket struct {
	entryID    uuid.UUID
	remaining  int64
	expiresAt  *time.Time
	occurredAt time.Time
}

func (b *bucket) expiredAt(t time.Time) bool {
	return b.expiresAt != nil && !b.expiresAt.After(t)
}

// Project derives the current Balance for a partition as of asOf. An empty
// ledger yields a zero Balance, not an error. Buckets whose expiry is due are
// excluded even before the sweeper has appended their expire entries, so lazy
// and batch sweeping converge to the same Balance.
func (e *Engine) Project(ctx context.Context, customerID, programID uuid.UUID, asOf time.Time) (*Balance, error) {
	entries, err := e.loadLedger(ctx, customerID, programID)
	if err != nil {
		return nil, err
	}
	bal, _ := projectLedger(entries, asOf)
	bal.CustomerID = customerID
	bal.ProgramID = programID
	return bal, nil
}

// projectLedger folds an ordered ledger into a Balance plus the surviving
// buckets. Redeems and negative adjusts draw from the soonest-to-expire
// non-expired bucket first (ties broken by earliest occurred_at); expire
// entries zero the referenced bucket without touching lifetime counters.
func projectLedger(entries []*ledger.Entry, asOf time.Time) (*Balance, []*bucket) {
	var buckets []*bucket
	bal := &Balance{AsOf: asOf}

	for _, en := range entries {
		switch en.Kind {
		case ledger.KindEarn:
			bal.LifetimeEarned += en.Amount
			buckets = append(buckets, &bucket{
				entryID:    en.ID,
				remaining:  en.Amount,
				expiresAt:  en.ExpiresAt,
				occurredAt: en.OccurredAt,
			})
		case ledger.KindAdjust:
			if en.Amount >= 0 {
				buckets = append(buckets, &bucket{
					entryID:    en.ID,
					remaining:  en.Amount,
					expiresAt:  en.ExpiresAt,
					occurredAt: en.OccurredAt,
				})
			} else {
				draw(buckets, -en.Amount, en.OccurredAt)
			}
		case ledger.KindRedeem:
			need := -en.Amount
			bal.LifetimeRedeemed += need
			draw(buckets, need, en.OccurredAt)
		case ledger.KindExpire:
			if en.SourceEntryID == nil {
				continue
			}
			for _, b := range buckets {
				if b.entryID == *en.SourceEntryID {
					b.remaining = 0
					break
				}
			}
		}
	}

	for _, b := range buckets {
		if b.remaining <= 0 || b.expiredAt(asOf) {
			continue
		}
		bal.AvailableUnits += b.remaining
		if b.expiresAt != nil && (bal.NextExpiry == nil || b.expiresAt.Before(*bal.NextExpiry)) {
			bal.NextExpiry = b.expiresAt
		}
	}

	return bal, buckets
}

// draw consumes need units from buckets in FIFO fairness order: earliest
// expires_at first (never-expiring last), then earliest occurred_at. Buckets
// already expired at the draw time are skipped. The redemption engine rejects
// writes that would overdraw, so need is always satisfiable in a consistent
// ledger; any shortfall here is simply left undrawn.
func draw(buckets []*bucket, need int64, at time.Time) {
	ordered := make([]*bucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.expiresAt == nil && b.expiresAt == nil:
			return a.occurredAt.Before(b.occurredAt)
		case a.expiresAt == nil:
			return false
		case b.expiresAt == nil:
			return true
		case a.expiresAt.Equal(*b.expiresAt):
			return a.occurredAt.Before(b.occurredAt)
		default:
			return a.expiresAt.Before(*b.expiresAt)
		}
	})

	for _, b := range ordered {
		if need <= 0 {
			return
		}
		if b.remaining <= 0 || b.expiredAt(at) {
			continue
		}
		take := b.remaining
		if take > need {
			take = need
		}
		b.remaining -= take
		need -= take
	}
}
