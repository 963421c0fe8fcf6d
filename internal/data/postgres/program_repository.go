// Package postgres provides PostgreSQL implementations of the domain
// repositories. Program and reward definitions are relational merchant
// configuration; the ledger itself lives in MongoDB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/loyalty-ledger/internal/domain/program"
	"github.com/loyalty-ledger/internal/platform/persistence"
)

// ProgramRepository implements the program.Repository interface for PostgreSQL
type ProgramRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewProgramRepository creates a new PostgreSQL program repository.
func NewProgramRepository(logger *slog.Logger, db *persistence.PostgresDB) program.Repository {
	return &ProgramRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *ProgramRepository) WithTx(tx pgx.Tx) program.Repository {
	return &ProgramRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new program definition
func (r *ProgramRepository) Create(ctx context.Context, p *program.Program) error {
	windows, err := json.Marshal(p.MultiplierWindows)
	if err != nil {
		return fmt.Errorf("failed to marshal multiplier windows: %w", err)
	}

	query := `
		INSERT INTO programs (id, merchant_id, name, kind, earn_rate, reward_threshold, expiry_days,
			min_purchase_amount, max_rewards_per_day, multiplier_windows, timezone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.querier.Exec(ctx, query,
		p.ID,
		p.MerchantID,
		p.Name,
		string(p.Kind),
		p.EarnRate,
		p.RewardThreshold,
		p.ExpiryDays,
		p.MinPurchaseAmount,
		p.MaxRewardsPerDay,
		windows,
		p.Timezone,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create program", "error", err)
		return fmt.Errorf("failed to create program: %w", err)
	}

	return nil
}

const programColumns = `
	id, merchant_id, name, kind, earn_rate, reward_threshold, expiry_days,
	min_purchase_amount, max_rewards_per_day, multiplier_windows, timezone, is_active, created_at, updated_at
`

func scanProgram(row pgx.Row) (*program.Program, error) {
	var p program.Program
	var kind string
	var windows []byte
	err := row.Scan(
		&p.ID,
		&p.MerchantID,
		&p.Name,
		&kind,
		&p.EarnRate,
		&p.RewardThreshold,
		&p.ExpiryDays,
		&p.MinPurchaseAmount,
		&p.MaxRewardsPerDay,
		&windows,
		&p.Timezone,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Kind = program.Kind(kind)
	if len(windows) > 0 {
		if err := json.Unmarshal(windows, &p.MultiplierWindows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal multiplier windows: %w", err)
		}
	}
	return &p, nil
}

// GetByID retrieves a program by its ID
func (r *ProgramRepository) GetByID(ctx context.Context, id uuid.UUID) (*program.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`

	p, err := scanProgram(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, program.ErrProgramNotFound{ProgramID: id}
		}
		r.logger.Error("Failed to get program", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	return p, nil
}

// ListByMerchant retrieves all programs owned by a merchant, newest first
func (r *ProgramRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*program.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE merchant_id = $1 ORDER BY created_at DESC`

	rows, err := r.querier.Query(ctx, query, merchantID)
	if err != nil {
		r.logger.Error("Failed to list programs", "merchant_id", merchantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var programs []*program.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			r.logger.Error("Failed to scan program row", "merchant_id", merchantID.String(), "error", err)
			return nil, fmt.Errorf("failed to scan program row: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate program rows: %w", err)
	}

	return programs, nil
}

// Update updates an existing program definition. Ledger history is never
// rewritten; edits only affect future accruals.
func (r *ProgramRepository) Update(ctx context.Context, p *program.Program) error {
	windows, err := json.Marshal(p.MultiplierWindows)
	if err != nil {
		return fmt.Errorf("failed to marshal multiplier windows: %w", err)
	}

	query := `
		UPDATE programs
		SET name = $1, kind = $2, earn_rate = $3, reward_threshold = $4, expiry_days = $5,
			min_purchase_amount = $6, max_rewards_per_day = $7, multiplier_windows = $8,
			timezone = $9, is_active = $10, updated_at = $11
		WHERE id = $12
	`

	result, err := r.querier.Exec(ctx, query,
		p.Name,
		string(p.Kind),
		p.EarnRate,
		p.RewardThreshold,
		p.ExpiryDays,
		p.MinPurchaseAmount,
		p.MaxRewardsPerDay,
		windows,
		p.Timezone,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update program", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update program: %w", err)
	}

	if result.RowsAffected() == 0 {
		return program.ErrProgramNotFound{ProgramID: p.ID}
	}

	return nil
}

// Deactivate soft-deletes a program; no row is ever removed
func (r *ProgramRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE programs SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate program", "id", id.String(), "error", err)
		return fmt.Errorf("failed to deactivate program: %w", err)
	}

	if result.RowsAffected() == 0 {
		return program.ErrProgramNotFound{ProgramID: id}
	}

	return nil
}
