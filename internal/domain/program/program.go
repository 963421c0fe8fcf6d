package program

import (
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/shared"
)

// Kind defines the loyalty mechanics of a program
type Kind string

const (
	KindPunchCard  Kind = "punch_card"
	KindPoints     Kind = "points"
	KindMembership Kind = "membership"
	KindLuckyDraw  Kind = "lucky_draw"
)

// MultiplierWindow boosts earned units on named day classes (e.g. weekends).
// Factor is an integer multiplier; fractional units are never produced.
type MultiplierWindow struct {
	Name     string         `json:"name"`
	Weekdays []time.Weekday `json:"weekdays"`
	Factor   int64          `json:"factor"`
}

// Contains reports whether t (already shifted to the program's timezone)
// falls inside the window.
func (w MultiplierWindow) Contains(t time.Time) bool {
	day := t.Weekday()
	for _, wd := range w.Weekdays {
		if wd == day {
			return true
		}
	}
	return false
}

// Program defines the rules under which customers earn and redeem units.
// Monetary amounts are stored in minor units (cents). Parameter edits never
// retroactively affect past ledger entries; programs are deactivated, not
// hard-deleted.
type Program struct {
	ID                uuid.UUID          `json:"id"`
	MerchantID        uuid.UUID          `json:"merchant_id"`
	Name              string             `json:"name"`
	Kind              Kind               `json:"kind"`
	EarnRate          int64              `json:"earn_rate"`        // units per whole currency unit spent, points only
	RewardThreshold   int64              `json:"reward_threshold"` // units per reward, punch_card/points
	ExpiryDays        int                `json:"expiry_days"`      // 0 = never
	MinPurchaseAmount int64              `json:"min_purchase_amount"`
	MaxRewardsPerDay  *int               `json:"max_rewards_per_day,omitempty"` // nil = unlimited
	MultiplierWindows []MultiplierWindow `json:"multiplier_windows,omitempty"`
	Timezone          string             `json:"timezone"` // IANA name; merchant-local day boundaries
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Validate checks the program invariants, returning a validation error
// citing the violated field.
func (p *Program) Validate() error {
	if p.MerchantID == uuid.Nil {
		return shared.NewValidationError("merchant_id", "merchant ID is required")
	}
	if p.Name == "" {
		return shared.NewValidationError("name", "program name is required")
	}
	switch p.Kind {
	case KindPunchCard, KindPoints, KindMembership, KindLuckyDraw:
	default:
		return shared.NewValidationError("kind", "unknown program kind")
	}
	if p.Kind == KindPoints && p.EarnRate <= 0 {
		return shared.NewValidationError("earn_rate", "earn rate must be positive for points programs")
	}
	if (p.Kind == KindPunchCard || p.Kind == KindPoints) && p.RewardThreshold <= 0 {
		return shared.NewValidationError("reward_threshold", "reward threshold must be positive")
	}
	if p.ExpiryDays < 0 {
		return shared.NewValidationError("expiry_days", "expiry days cannot be negative")
	}
	if p.MinPurchaseAmount < 0 {
		return shared.NewValidationError("min_purchase_amount", "minimum purchase cannot be negative")
	}
	if p.MaxRewardsPerDay != nil && *p.MaxRewardsPerDay <= 0 {
		return shared.NewValidationError("max_rewards_per_day", "daily cap must be positive when set")
	}
	for _, w := range p.MultiplierWindows {
		if w.Factor <= 0 {
			return shared.NewValidationError("multiplier_windows", "multiplier factor must be positive")
		}
		if len(w.Weekdays) == 0 {
			return shared.NewValidationError("multiplier_windows", "multiplier window needs at least one weekday")
		}
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return shared.NewValidationError("timezone", "unknown IANA timezone")
		}
	}
	return nil
}

// Location resolves the merchant-local timezone, defaulting to UTC.
func (p *Program) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UnitsFor computes the units earned for a purchase at occurredAt.
// Points programs earn floor(purchase/100)*earnRate; all other kinds earn a
// single stamp/ticket. Multiplier windows apply with integer truncation.
func (p *Program) UnitsFor(purchaseAmount int64, occurredAt time.Time) int64 {
	var units int64
	switch p.Kind {
	case KindPoints:
		units = (purchaseAmount / 100) * p.EarnRate
	default:
		units = 1
	}

	local := occurredAt.In(p.Location())
	for _, w := range p.MultiplierWindows {
		if w.Contains(local) {
			units *= w.Factor
			break
		}
	}
	return units
}

// DayBounds returns the merchant-local calendar day containing t, as a
// half-open [start, end) interval in UTC.
func (p *Program) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(p.Location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
