package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind defines the ledger entry categories
type Kind string

const (
	KindEarn   Kind = "earn"
	KindRedeem Kind = "redeem"
	KindAdjust Kind = "adjust"
	KindExpire Kind = "expire"
)

// Entry is one append-only record in a (customer, program) ledger partition.
// Entries are never mutated or deleted; reversals are recorded as new
// adjust/expire entries with the opposite sign. Amount is in signed units
// (stamps/points/tickets), PurchaseAmount in minor currency units.
type Entry struct {
	ID             uuid.UUID  `json:"entry_id" bson:"entry_id"`
	MerchantID     uuid.UUID  `json:"merchant_id" bson:"merchant_id"`
	CustomerID     uuid.UUID  `json:"customer_id" bson:"customer_id"`
	ProgramID      uuid.UUID  `json:"program_id" bson:"program_id"`
	Kind           Kind       `json:"kind" bson:"kind"`
	Amount         int64      `json:"amount" bson:"amount"`
	PurchaseAmount *int64     `json:"purchase_amount,omitempty" bson:"purchase_amount,omitempty"`
	RewardID       *uuid.UUID `json:"reward_id,omitempty" bson:"reward_id,omitempty"`
	SourceEntryID  *uuid.UUID `json:"source_entry_id,omitempty" bson:"source_entry_id,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CorrelationID  string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at" bson:"occurred_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
}

// Partition identifies the (customer, program) scope within which ledger
// operations are serialized.
type Partition struct {
	CustomerID uuid.UUID `bson:"customer_id"`
	ProgramID  uuid.UUID `bson:"program_id"`
}

// Key renders a stable string form, used for lock registries and Kafka keys.
func (p Partition) Key() string {
	return p.CustomerID.String() + "|" + p.ProgramID.String()
}
