package reward

import (
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/shared"
)

// Reward is a redeemable item configured by the merchant. It is referenced
// by redeem ledger entries but never owned by them.
type Reward struct {
	ID            uuid.UUID `json:"id"`
	ProgramID     uuid.UUID `json:"program_id"`
	MerchantID    uuid.UUID `json:"merchant_id"`
	Name          string    `json:"name"`
	UnitsRequired int64     `json:"units_required"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks reward invariants
func (r *Reward) Validate() error {
	if r.ProgramID == uuid.Nil {
		return shared.NewValidationError("program_id", "program ID is required")
	}
	if r.MerchantID == uuid.Nil {
		return shared.NewValidationError("merchant_id", "merchant ID is required")
	}
	if r.Name == "" {
		return shared.NewValidationError("name", "reward name is required")
	}
	if r.UnitsRequired <= 0 {
		return shared.NewValidationError("units_required", "units required must be positive")
	}
	return nil
}
