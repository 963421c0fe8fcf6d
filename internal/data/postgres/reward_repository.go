package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/loyalty-ledger/internal/domain/reward"
	"github.com/loyalty-ledger/internal/platform/persistence"
)

// RewardRepository implements the reward.Repository interface for PostgreSQL
type RewardRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRewardRepository creates a new PostgreSQL reward repository
func NewRewardRepository(logger *slog.Logger, db *persistence.PostgresDB) reward.Repository {
	return &RewardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RewardRepository) WithTx(tx pgx.Tx) reward.Repository {
	return &RewardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new reward
func (r *RewardRepository) Create(ctx context.Context, rw *reward.Reward) error {
	query := `
		INSERT INTO rewards (id, program_id, merchant_id, name, units_required, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		rw.ID,
		rw.ProgramID,
		rw.MerchantID,
		rw.Name,
		rw.UnitsRequired,
		rw.IsAvailable,
		rw.CreatedAt,
		rw.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create reward", "error", err)
		return fmt.Errorf("failed to create reward: %w", err)
	}

	return nil
}

// GetByID retrieves a reward by its ID
func (r *RewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*reward.Reward, error) {
	query := `
		SELECT id, program_id, merchant_id, name, units_required, is_available, created_at, updated_at
		FROM rewards
		WHERE id = $1
	`

	var rw reward.Reward
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&rw.ID,
		&rw.ProgramID,
		&rw.MerchantID,
		&rw.Name,
		&rw.UnitsRequired,
		&rw.IsAvailable,
		&rw.CreatedAt,
		&rw.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrRewardNotFound{RewardID: id}
		}
		r.logger.Error("Failed to get reward", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return &rw, nil
}

// ListByProgram retrieves all rewards configured for a program
func (r *RewardRepository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]*reward.Reward, error) {
	query := `
		SELECT id, program_id, merchant_id, name, units_required, is_available, created_at, updated_at
		FROM rewards
		WHERE program_id = $1
		ORDER BY units_required ASC
	`

	rows, err := r.querier.Query(ctx, query, programID)
	if err != nil {
		r.logger.Error("Failed to list rewards", "program_id", programID.String(), "error", err)
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*reward.Reward
	for rows.Next() {
		var rw reward.Reward
		err := rows.Scan(
			&rw.ID,
			&rw.ProgramID,
			&rw.MerchantID,
			&rw.Name,
			&rw.UnitsRequired,
			&rw.IsAvailable,
			&rw.CreatedAt,
			&rw.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan reward row", "program_id", programID.String(), "error", err)
			return nil, fmt.Errorf("failed to scan reward row: %w", err)
		}
		rewards = append(rewards, &rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reward rows: %w", err)
	}

	return rewards, nil
}

// Update updates an existing reward
func (r *RewardRepository) Update(ctx context.Context, rw *reward.Reward) error {
	query := `
		UPDATE rewards
		SET name = $1, units_required = $2, is_available = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		rw.Name,
		rw.UnitsRequired,
		rw.IsAvailable,
		rw.UpdatedAt,
		rw.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update reward", "id", rw.ID.String(), "error", err)
		return fmt.Errorf("failed to update reward: %w", err)
	}

	if result.RowsAffected() == 0 {
		return reward.ErrRewardNotFound{RewardID: rw.ID}
	}

	return nil
}

// SetAvailability toggles whether a reward can currently be redeemed
func (r *RewardRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	query := `UPDATE rewards SET is_available = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, available, id)
	if err != nil {
		r.logger.Error("Failed to set reward availability", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set reward availability: %w", err)
	}

	if result.RowsAffected() == 0 {
		return reward.ErrRewardNotFound{RewardID: id}
	}

	return nil
}
