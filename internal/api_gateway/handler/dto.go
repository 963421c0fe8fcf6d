package handler

import "time"

// MultiplierWindowPayload represents a bonus window in program requests
type MultiplierWindowPayload struct {
	Name     string `json:"name" binding:"required"`
	Weekdays []int  `json:"weekdays" binding:"required,min=1,dive,min=0,max=6"`
	Factor   int64  `json:"factor" binding:"required,gt=0"`
}

// CreateProgramRequest represents a request to create a new loyalty program
type CreateProgramRequest struct {
	Name              string                    `json:"name" binding:"required"`
	Kind              string                    `json:"kind" binding:"required,oneof=punch_card points membership lucky_draw"`
	EarnRate          int64                     `json:"earn_rate" binding:"min=0"`
	RewardThreshold   int64                     `json:"reward_threshold" binding:"min=0"`
	ExpiryDays        int                       `json:"expiry_days" binding:"min=0"`
	MinPurchaseAmount int64                     `json:"min_purchase_amount" binding:"min=0"`
	MaxRewardsPerDay  *int                      `json:"max_rewards_per_day,omitempty"`
	MultiplierWindows []MultiplierWindowPayload `json:"multiplier_windows,omitempty"`
	Timezone          string                    `json:"timezone,omitempty"`
}

// UpdateProgramRequest represents a request to edit an existing program
type UpdateProgramRequest struct {
	Name              string                    `json:"name" binding:"required"`
	Kind              string                    `json:"kind" binding:"required,oneof=punch_card points membership lucky_draw"`
	EarnRate          int64                     `json:"earn_rate" binding:"min=0"`
	RewardThreshold   int64                     `json:"reward_threshold" binding:"min=0"`
	ExpiryDays        int                       `json:"expiry_days" binding:"min=0"`
	MinPurchaseAmount int64                     `json:"min_purchase_amount" binding:"min=0"`
	MaxRewardsPerDay  *int                      `json:"max_rewards_per_day,omitempty"`
	MultiplierWindows []MultiplierWindowPayload `json:"multiplier_windows,omitempty"`
	Timezone          string                    `json:"timezone,omitempty"`
}

// ProgramResponse represents a program in API responses
type ProgramResponse struct {
	ID                string                    `json:"id"`
	MerchantID        string                    `json:"merchant_id"`
	Name              string                    `json:"name"`
	Kind              string                    `json:"kind"`
	EarnRate          int64                     `json:"earn_rate"`
	RewardThreshold   int64                     `json:"reward_threshold"`
	ExpiryDays        int                       `json:"expiry_days"`
	MinPurchaseAmount int64                     `json:"min_purchase_amount"`
	MaxRewardsPerDay  *int                      `json:"max_rewards_per_day,omitempty"`
	MultiplierWindows []MultiplierWindowPayload `json:"multiplier_windows,omitempty"`
	Timezone          string                    `json:"timezone,omitempty"`
	IsActive          bool                      `json:"is_active"`
	CreatedAt         string                    `json:"created_at"`
	UpdatedAt         string                    `json:"updated_at"`
}

// CreateRewardRequest represents a request to add a reward to a program
type CreateRewardRequest struct {
	Name          string `json:"name" binding:"required"`
	UnitsRequired int64  `json:"units_required" binding:"required,gt=0"`
}

// UpdateRewardRequest represents a request to edit an existing reward
type UpdateRewardRequest struct {
	Name          string `json:"name" binding:"required"`
	UnitsRequired int64  `json:"units_required" binding:"required,gt=0"`
	IsAvailable   bool   `json:"is_available"`
}

// SetAvailabilityRequest toggles whether a reward can be redeemed
type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// RewardResponse represents a reward in API responses
type RewardResponse struct {
	ID            string `json:"id"`
	ProgramID     string `json:"program_id"`
	MerchantID    string `json:"merchant_id"`
	Name          string `json:"name"`
	UnitsRequired int64  `json:"units_required"`
	IsAvailable   bool   `json:"is_available"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// EarnHTTPRequest represents a request to record an accrual.
// PurchaseAmount is in minor currency units (cents).
type EarnHTTPRequest struct {
	CustomerID     string     `json:"customer_id" binding:"required,uuid"`
	ProgramID      string     `json:"program_id" binding:"required,uuid"`
	PurchaseAmount int64      `json:"purchase_amount" binding:"required,gt=0"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
}

// RedeemHTTPRequest represents a request to spend units against a reward
type RedeemHTTPRequest struct {
	CustomerID     string     `json:"customer_id" binding:"required,uuid"`
	ProgramID      string     `json:"program_id" binding:"required,uuid"`
	RewardID       string     `json:"reward_id" binding:"required,uuid"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID             string `json:"id"`
	MerchantID     string `json:"merchant_id"`
	CustomerID     string `json:"customer_id"`
	ProgramID      string `json:"program_id"`
	Kind           string `json:"kind"`
	Amount         int64  `json:"amount"`
	PurchaseAmount *int64 `json:"purchase_amount,omitempty"`
	RewardID       string `json:"reward_id,omitempty"`
	SourceEntryID  string `json:"source_entry_id,omitempty"`
	OccurredAt     string `json:"occurred_at"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// BalanceResponse represents a projected balance in API responses
type BalanceResponse struct {
	CustomerID       string `json:"customer_id"`
	ProgramID        string `json:"program_id"`
	AvailableUnits   int64  `json:"available_units"`
	LifetimeEarned   int64  `json:"lifetime_earned"`
	LifetimeRedeemed int64  `json:"lifetime_redeemed"`
	NextExpiry       string `json:"next_expiry,omitempty"`
	AsOf             string `json:"as_of"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
