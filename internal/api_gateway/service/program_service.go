package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/program"
)

// ProgramServiceImpl implements the ProgramService interface
type ProgramServiceImpl struct {
	programRepo program.Repository
}

// NewProgramService creates a new program service
func NewProgramService(programRepo program.Repository) ProgramService {
	return &ProgramServiceImpl{
		programRepo: programRepo,
	}
}

// CreateProgram validates and stores a new program definition
func (s *ProgramServiceImpl) CreateProgram(ctx context.Context, p *program.Program) (*program.Program, error) {
	now := time.Now().UTC()
	p.ID = uuid.New()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.programRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// GetProgram retrieves a program owned by the merchant. Another merchant's
// program is reported as not found, never as forbidden.
func (s *ProgramServiceImpl) GetProgram(ctx context.Context, merchantID, programID uuid.UUID) (*program.Program, error) {
	p, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if p.MerchantID != merchantID {
		return nil, program.ErrProgramNotFound{ProgramID: programID}
	}
	return p, nil
}

// ListPrograms retrieves all programs owned by the merchant
func (s *ProgramServiceImpl) ListPrograms(ctx context.Context, merchantID uuid.UUID) ([]*program.Program, error) {
	return s.programRepo.ListByMerchant(ctx, merchantID)
}

// UpdateProgram validates and stores edits to an existing program. Rule
// changes never rewrite ledger history; they apply to future accruals only.
func (s *ProgramServiceImpl) UpdateProgram(ctx context.Context, p *program.Program) (*program.Program, error) {
	existing, err := s.GetProgram(ctx, p.MerchantID, p.ID)
	if err != nil {
		return nil, err
	}

	p.IsActive = existing.IsActive
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.programRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// DeactivateProgram soft-deletes a program owned by the merchant
func (s *ProgramServiceImpl) DeactivateProgram(ctx context.Context, merchantID, programID uuid.UUID) error {
	if _, err := s.GetProgram(ctx, merchantID, programID); err != nil {
		return err
	}

	err := s.programRepo.Deactivate(ctx, programID)
	if err != nil && errors.Is(err, program.ErrProgramNotFound{}) {
		return program.ErrProgramNotFound{ProgramID: programID}
	}
	return err
}
