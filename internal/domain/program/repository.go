package program

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages program definition persistence
type Repository interface {
	Create(ctx context.Context, p *Program) error
	GetByID(ctx context.Context, id uuid.UUID) (*Program, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*Program, error)
	Update(ctx context.Context, p *Program) error
	// Deactivate soft-deletes a program; ledger history is never touched.
	Deactivate(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrProgramNotFound indicates a missing program definition
type ErrProgramNotFound struct {
	ProgramID uuid.UUID
}

func (e ErrProgramNotFound) Error() string {
	return "program not found: " + e.ProgramID.String()
}

// Is implements the errors.Is interface for ErrProgramNotFound
func (e ErrProgramNotFound) Is(target error) bool {
	t, ok := target.(ErrProgramNotFound)
	if !ok {
		return false
	}
	if t.ProgramID == uuid.Nil {
		return true
	}
	return e.ProgramID == t.ProgramID
}
