package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingCustomer = errors.New("customer ID is required")
	ErrMissingProgram  = errors.New("program ID is required")
)

// EarnRequest asks the engine to record an accrual against a purchase.
// It doubles as the Kafka message for the async ingestion topic. Amounts
// are in minor currency units (cents).
type EarnRequest struct {
	MerchantID     uuid.UUID `json:"merchant_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	ProgramID      uuid.UUID `json:"program_id"`
	PurchaseAmount int64     `json:"purchase_amount"`
	OccurredAt     time.Time `json:"occurred_at"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
}

// RedeemRequest asks the engine to spend units against a reward.
type RedeemRequest struct {
	MerchantID     uuid.UUID `json:"merchant_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	ProgramID      uuid.UUID `json:"program_id"`
	RewardID       uuid.UUID `json:"reward_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
}

// NotificationEvent is published by the application layer when an earn or
// redeem crosses a notification-worthy threshold. The engine itself never
// publishes; it only exposes the resulting balance.
type NotificationEvent struct {
	Type           string     `json:"type"` // reward_unlocked | reward_redeemed
	MerchantID     uuid.UUID  `json:"merchant_id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	ProgramID      uuid.UUID  `json:"program_id"`
	RewardID       *uuid.UUID `json:"reward_id,omitempty"`
	AvailableUnits int64      `json:"available_units"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

const (
	NotificationRewardUnlocked = "reward_unlocked"
	NotificationRewardRedeemed = "reward_redeemed"
)
