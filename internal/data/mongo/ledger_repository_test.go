package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/loyalty-ledger/internal/domain/ledger"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*ledger.Entry, error) {
	args := m.Called(ctx, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListByPartition(ctx context.Context, customerID, programID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, customerID, programID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListByPartitionPage(ctx context.Context, customerID, programID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, customerID, programID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByPartition(ctx context.Context, customerID, programID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID, programID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) CountEarnsBetween(ctx context.Context, customerID, programID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, customerID, programID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) ListExpiringPartitions(ctx context.Context, asOf time.Time, limit int) ([]ledger.Partition, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Partition), args.Error(1)
}

var _ ledger.Repository = (*MockLedgerRepository)(nil)

func testEntry() *ledger.Entry {
	purchase := int64(500)
	return &ledger.Entry{
		ID:             uuid.New(),
		MerchantID:     uuid.New(),
		CustomerID:     uuid.New(),
		ProgramID:      uuid.New(),
		Kind:           ledger.KindEarn,
		Amount:         5,
		PurchaseAmount: &purchase,
		IdempotencyKey: "key1",
		CorrelationID:  "corr1",
		OccurredAt:     time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}
}

func TestNewLedgerRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewLedgerRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &LedgerRepository{}, repo)
}

func TestLedgerRepository_Append(t *testing.T) {
	entry := testEntry()

	tests := []struct {
		name          string
		setupMocks    func(*MockLedgerRepository)
		expectedError error
	}{
		{
			name: "successful append",
			setupMocks: func(m *MockLedgerRepository) {
				m.On("Append", mock.Anything, entry).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "duplicate idempotency key",
			setupMocks: func(m *MockLedgerRepository) {
				m.On("Append", mock.Anything, entry).
					Return(ledger.ErrDuplicateEntry{EntryID: entry.ID, IdempotencyKey: entry.IdempotencyKey})
			},
			expectedError: ledger.ErrDuplicateEntry{EntryID: entry.ID, IdempotencyKey: entry.IdempotencyKey},
		},
		{
			name: "database error",
			setupMocks: func(m *MockLedgerRepository) {
				m.On("Append", mock.Anything, entry).Return(errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockLedgerRepository{}
			tt.setupMocks(mockRepo)

			err := mockRepo.Append(context.Background(), entry)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLedgerRepository_AppendErrorTranslation(t *testing.T) {
	entry := testEntry()

	t.Run("unique index violation becomes duplicate entry", func(t *testing.T) {
		writeErr := mongo.WriteException{
			WriteErrors: mongo.WriteErrors{{Code: 11000}},
		}

		err := appendError(entry, writeErr)

		var dup ledger.ErrDuplicateEntry
		assert.ErrorAs(t, err, &dup)
		assert.Equal(t, entry.ID, dup.EntryID)
		assert.Equal(t, entry.IdempotencyKey, dup.IdempotencyKey)
	})

	t.Run("other write failures are wrapped", func(t *testing.T) {
		cause := errors.New("socket closed")

		err := appendError(entry, cause)

		assert.ErrorIs(t, err, cause)
	})
}

func TestLedgerRepository_GetByID(t *testing.T) {
	entry := testEntry()

	tests := []struct {
		name          string
		setupMocks    func(*MockLedgerRepository)
		expectedEntry *ledger.Entry
		expectedError error
	}{
		{
			name: "entry found",
			setupMocks: func(m *MockLedgerRepository) {
				m.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
			},
			expectedEntry: entry,
		},
		{
			name: "entry not found",
			setupMocks: func(m *MockLedgerRepository) {
				m.On("GetByID", mock.Anything, entry.ID).Return(nil, ledger.ErrEntryNotFound{EntryID: entry.ID})
			},
			expectedError: ledger.ErrEntryNotFound{EntryID: entry.ID},
		},
		{
			name: "database error",
			setupMocks: func(m *MockLedgerRepository) {
				m.On("GetByID", mock.Anything, entry.ID).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockLedgerRepository{}
			tt.setupMocks(mockRepo)

			result, err := mockRepo.GetByID(context.Background(), entry.ID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedEntry, result)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLedgerRepository_GetByIdempotencyKey(t *testing.T) {
	entry := testEntry()

	t.Run("entry found", func(t *testing.T) {
		mockRepo := &MockLedgerRepository{}
		mockRepo.On("GetByIdempotencyKey", mock.Anything, entry.IdempotencyKey).Return(entry, nil)

		result, err := mockRepo.GetByIdempotencyKey(context.Background(), entry.IdempotencyKey)

		assert.NoError(t, err)
		assert.Equal(t, entry, result)
		mockRepo.AssertExpectations(t)
	})

	t.Run("no entry carries the key", func(t *testing.T) {
		mockRepo := &MockLedgerRepository{}
		mockRepo.On("GetByIdempotencyKey", mock.Anything, "missing").Return(nil, nil)

		result, err := mockRepo.GetByIdempotencyKey(context.Background(), "missing")

		assert.NoError(t, err)
		assert.Nil(t, result)
		mockRepo.AssertExpectations(t)
	})
}

func TestLedgerRepository_ListExpiringPartitions(t *testing.T) {
	asOf := time.Now().UTC()
	partitions := []ledger.Partition{
		{CustomerID: uuid.New(), ProgramID: uuid.New()},
		{CustomerID: uuid.New(), ProgramID: uuid.New()},
	}

	t.Run("partitions due", func(t *testing.T) {
		mockRepo := &MockLedgerRepository{}
		mockRepo.On("ListExpiringPartitions", mock.Anything, asOf, 100).Return(partitions, nil)

		result, err := mockRepo.ListExpiringPartitions(context.Background(), asOf, 100)

		assert.NoError(t, err)
		assert.Equal(t, partitions, result)
		mockRepo.AssertExpectations(t)
	})

	t.Run("database error", func(t *testing.T) {
		mockRepo := &MockLedgerRepository{}
		mockRepo.On("ListExpiringPartitions", mock.Anything, asOf, 100).Return(nil, errors.New("db error"))

		result, err := mockRepo.ListExpiringPartitions(context.Background(), asOf, 100)

		assert.Error(t, err)
		assert.Nil(t, result)
		mockRepo.AssertExpectations(t)
	})
}
