package reward

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages reward persistence
type Repository interface {
	Create(ctx context.Context, r *Reward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reward, error)
	ListByProgram(ctx context.Context, programID uuid.UUID) ([]*Reward, error)
	Update(ctx context.Context, r *Reward) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	WithTx(tx pgx.Tx) Repository
}

// ErrRewardNotFound indicates a missing reward
type ErrRewardNotFound struct {
	RewardID uuid.UUID
}

func (e ErrRewardNotFound) Error() string {
	return "reward not found: " + e.RewardID.String()
}

// Is implements the errors.Is interface for ErrRewardNotFound
func (e ErrRewardNotFound) Is(target error) bool {
	t, ok := target.(ErrRewardNotFound)
	if !ok {
		return false
	}
	if t.RewardID == uuid.Nil {
		return true
	}
	return e.RewardID == t.RewardID
}
