package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyalty-ledger/internal/domain/program"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var programCols = []string{
	"id", "merchant_id", "name", "kind", "earn_rate", "reward_threshold", "expiry_days",
	"min_purchase_amount", "max_rewards_per_day", "multiplier_windows", "timezone", "is_active", "created_at", "updated_at",
}

func testProgram() *program.Program {
	now := time.Now()
	return &program.Program{
		ID:              uuid.New(),
		MerchantID:      uuid.New(),
		Name:            "Coffee Points",
		Kind:            program.KindPoints,
		EarnRate:        2,
		RewardThreshold: 100,
		ExpiryDays:      90,
		Timezone:        "UTC",
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func programRow(p *program.Program, windows []byte) *pgxmock.Rows {
	return pgxmock.NewRows(programCols).
		AddRow(p.ID, p.MerchantID, p.Name, string(p.Kind), p.EarnRate, p.RewardThreshold, p.ExpiryDays,
			p.MinPurchaseAmount, p.MaxRewardsPerDay, windows, p.Timezone, p.IsActive, p.CreatedAt, p.UpdatedAt)
}

func TestProgramRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProgramRepository{querier: mock, logger: logger}
	p := testProgram()

	query := `
		INSERT INTO programs \(id, merchant_id, name, kind, earn_rate, reward_threshold, expiry_days,
			min_purchase_amount, max_rewards_per_day, multiplier_windows, timezone, is_active, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, \$14\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.MerchantID, p.Name, string(p.Kind), p.EarnRate, p.RewardThreshold, p.ExpiryDays,
				p.MinPurchaseAmount, p.MaxRewardsPerDay, []byte("null"), p.Timezone, p.IsActive, p.CreatedAt, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("multiplier windows serialized as JSON", func(t *testing.T) {
		withWindows := testProgram()
		withWindows.MultiplierWindows = []program.MultiplierWindow{
			{Name: "weekend", Weekdays: []time.Weekday{time.Saturday, time.Sunday}, Factor: 2},
		}
		windowsJSON := []byte(`[{"name":"weekend","weekdays":[6,0],"factor":2}]`)

		mock.ExpectExec(query).
			WithArgs(withWindows.ID, withWindows.MerchantID, withWindows.Name, string(withWindows.Kind),
				withWindows.EarnRate, withWindows.RewardThreshold, withWindows.ExpiryDays,
				withWindows.MinPurchaseAmount, withWindows.MaxRewardsPerDay, windowsJSON,
				withWindows.Timezone, withWindows.IsActive, withWindows.CreatedAt, withWindows.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, withWindows)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(p.ID, p.MerchantID, p.Name, string(p.Kind), p.EarnRate, p.RewardThreshold, p.ExpiryDays,
				p.MinPurchaseAmount, p.MaxRewardsPerDay, []byte("null"), p.Timezone, p.IsActive, p.CreatedAt, p.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create program")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProgramRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProgramRepository{querier: mock, logger: logger}
	expected := testProgram()
	expected.MultiplierWindows = []program.MultiplierWindow{
		{Name: "weekend", Weekdays: []time.Weekday{time.Saturday, time.Sunday}, Factor: 2},
	}

	query := `SELECT id, merchant_id, name, kind, earn_rate, reward_threshold, expiry_days,
		min_purchase_amount, max_rewards_per_day, multiplier_windows, timezone, is_active, created_at, updated_at
		FROM programs WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		windowsJSON := []byte(`[{"name":"weekend","weekdays":[6,0],"factor":2}]`)
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(programRow(expected, windowsJSON))

		p, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		p, err := repo.GetByID(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, p)
		var notFoundErr program.ErrProgramNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, expected.ID, notFoundErr.ProgramID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(dbErr)

		p, err := repo.GetByID(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "failed to get program")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProgramRepository_ListByMerchant(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProgramRepository{querier: mock, logger: logger}
	merchantID := uuid.New()

	query := `SELECT id, merchant_id, name, kind, earn_rate, reward_threshold, expiry_days,
		min_purchase_amount, max_rewards_per_day, multiplier_windows, timezone, is_active, created_at, updated_at
		FROM programs WHERE merchant_id = \$1 ORDER BY created_at DESC`

	t.Run("success", func(t *testing.T) {
		first := testProgram()
		first.MerchantID = merchantID
		second := testProgram()
		second.MerchantID = merchantID
		rows := pgxmock.NewRows(programCols).
			AddRow(first.ID, first.MerchantID, first.Name, string(first.Kind), first.EarnRate, first.RewardThreshold,
				first.ExpiryDays, first.MinPurchaseAmount, first.MaxRewardsPerDay, []byte(nil), first.Timezone,
				first.IsActive, first.CreatedAt, first.UpdatedAt).
			AddRow(second.ID, second.MerchantID, second.Name, string(second.Kind), second.EarnRate, second.RewardThreshold,
				second.ExpiryDays, second.MinPurchaseAmount, second.MaxRewardsPerDay, []byte(nil), second.Timezone,
				second.IsActive, second.CreatedAt, second.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(merchantID).WillReturnRows(rows)

		programs, err := repo.ListByMerchant(ctx, merchantID)
		assert.NoError(t, err)
		assert.Len(t, programs, 2)
		assert.Equal(t, first.ID, programs[0].ID)
		assert.Equal(t, second.ID, programs[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(merchantID).WillReturnRows(pgxmock.NewRows(programCols))

		programs, err := repo.ListByMerchant(ctx, merchantID)
		assert.NoError(t, err)
		assert.Empty(t, programs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).WithArgs(merchantID).WillReturnError(dbErr)

		programs, err := repo.ListByMerchant(ctx, merchantID)
		assert.Error(t, err)
		assert.Nil(t, programs)
		assert.Contains(t, err.Error(), "failed to list programs")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProgramRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProgramRepository{querier: mock, logger: logger}
	p := testProgram()

	query := `
		UPDATE programs
		SET name = \$1, kind = \$2, earn_rate = \$3, reward_threshold = \$4, expiry_days = \$5,
			min_purchase_amount = \$6, max_rewards_per_day = \$7, multiplier_windows = \$8,
			timezone = \$9, is_active = \$10, updated_at = \$11
		WHERE id = \$12
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.Name, string(p.Kind), p.EarnRate, p.RewardThreshold, p.ExpiryDays,
				p.MinPurchaseAmount, p.MaxRewardsPerDay, []byte("null"), p.Timezone, p.IsActive, p.UpdatedAt, p.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.Name, string(p.Kind), p.EarnRate, p.RewardThreshold, p.ExpiryDays,
				p.MinPurchaseAmount, p.MaxRewardsPerDay, []byte("null"), p.Timezone, p.IsActive, p.UpdatedAt, p.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, p)
		assert.Error(t, err)
		var notFoundErr program.ErrProgramNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, p.ID, notFoundErr.ProgramID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(p.Name, string(p.Kind), p.EarnRate, p.RewardThreshold, p.ExpiryDays,
				p.MinPurchaseAmount, p.MaxRewardsPerDay, []byte("null"), p.Timezone, p.IsActive, p.UpdatedAt, p.ID).
			WillReturnError(dbErr)

		err := repo.Update(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update program")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProgramRepository_Deactivate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProgramRepository{querier: mock, logger: logger}
	programID := uuid.New()

	query := `UPDATE programs SET is_active = FALSE, updated_at = NOW\(\) WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(programID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Deactivate(ctx, programID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(programID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Deactivate(ctx, programID)
		assert.Error(t, err)
		var notFoundErr program.ErrProgramNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("deactivate db error")
		mock.ExpectExec(query).WithArgs(programID).WillReturnError(dbErr)

		err := repo.Deactivate(ctx, programID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to deactivate program")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProgramRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &ProgramRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*ProgramRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*ProgramRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
