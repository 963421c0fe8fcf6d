package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/program"
	"github.com/loyalty-ledger/internal/domain/reward"
)

// memoryLedger is an in-memory ledger.Repository used by the engine tests.
// It enforces idempotency-key uniqueness and returns partition listings in
// occurred_at order, matching the Mongo-backed implementation.
type memoryLedger struct {
	mu      sync.Mutex
	entries []*ledger.Entry

	appendErr error
	listErr   error
	getErr    error
}

var _ ledger.Repository = (*memoryLedger)(nil)

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{}
}

func (m *memoryLedger) Append(_ context.Context, entry *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	for _, en := range m.entries {
		if en.ID == entry.ID {
			return ledger.ErrDuplicateEntry{EntryID: entry.ID}
		}
		if entry.IdempotencyKey != "" && en.IdempotencyKey == entry.IdempotencyKey {
			return ledger.ErrDuplicateEntry{IdempotencyKey: entry.IdempotencyKey}
		}
	}
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memoryLedger) GetByID(_ context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, en := range m.entries {
		if en.ID == entryID {
			cp := *en
			return &cp, nil
		}
	}
	return nil, ledger.ErrEntryNotFound{EntryID: entryID}
}

func (m *memoryLedger) GetByIdempotencyKey(_ context.Context, idempotencyKey string) (*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, en := range m.entries {
		if en.IdempotencyKey == idempotencyKey {
			cp := *en
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryLedger) ListByPartition(_ context.Context, customerID, programID uuid.UUID) ([]*ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*ledger.Entry
	for _, en := range m.entries {
		if en.CustomerID == customerID && en.ProgramID == programID {
			cp := *en
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (m *memoryLedger) ListByPartitionPage(ctx context.Context, customerID, programID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	all, err := m.ListByPartition(ctx, customerID, programID)
	if err != nil {
		return nil, err
	}
	// Newest first for history pages.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memoryLedger) CountByPartition(_ context.Context, customerID, programID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, en := range m.entries {
		if en.CustomerID == customerID && en.ProgramID == programID {
			n++
		}
	}
	return n, nil
}

func (m *memoryLedger) CountEarnsBetween(_ context.Context, customerID, programID uuid.UUID, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, en := range m.entries {
		if en.CustomerID != customerID || en.ProgramID != programID || en.Kind != ledger.KindEarn {
			continue
		}
		if !en.OccurredAt.Before(from) && en.OccurredAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memoryLedger) ListExpiringPartitions(_ context.Context, asOf time.Time, limit int) ([]ledger.Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[ledger.Partition]bool)
	var out []ledger.Partition
	for _, en := range m.entries {
		if en.Kind != ledger.KindEarn || en.ExpiresAt == nil || en.ExpiresAt.After(asOf) {
			continue
		}
		part := ledger.Partition{CustomerID: en.CustomerID, ProgramID: en.ProgramID}
		if seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MockProgramRepository is a mock implementation of program.Repository
type MockProgramRepository struct {
	mock.Mock
}

func (m *MockProgramRepository) Create(ctx context.Context, p *program.Program) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProgramRepository) GetByID(ctx context.Context, id uuid.UUID) (*program.Program, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*program.Program), args.Error(1)
}

func (m *MockProgramRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*program.Program, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*program.Program), args.Error(1)
}

func (m *MockProgramRepository) Update(ctx context.Context, p *program.Program) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProgramRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProgramRepository) WithTx(tx pgx.Tx) program.Repository {
	args := m.Called(tx)
	return args.Get(0).(program.Repository)
}

// MockRewardRepository is a mock implementation of reward.Repository
type MockRewardRepository struct {
	mock.Mock
}

func (m *MockRewardRepository) Create(ctx context.Context, r *reward.Reward) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*reward.Reward, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reward.Reward), args.Error(1)
}

func (m *MockRewardRepository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]*reward.Reward, error) {
	args := m.Called(ctx, programID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reward.Reward), args.Error(1)
}

func (m *MockRewardRepository) Update(ctx context.Context, r *reward.Reward) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRewardRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

func (m *MockRewardRepository) WithTx(tx pgx.Tx) reward.Repository {
	args := m.Called(tx)
	return args.Get(0).(reward.Repository)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// testHarness bundles an engine with its backing fakes for one test.
type testHarness struct {
	engine      *Engine
	programs    *MockProgramRepository
	rewards     *MockRewardRepository
	ledgerStore *memoryLedger
}

func newTestHarness() *testHarness {
	programs := new(MockProgramRepository)
	rewards := new(MockRewardRepository)
	store := newMemoryLedger()
	return &testHarness{
		engine:      New(discardLogger(), programs, rewards, store),
		programs:    programs,
		rewards:     rewards,
		ledgerStore: store,
	}
}

func intPtr(v int) *int { return &v }

func pointsProgram(merchantID uuid.UUID) *program.Program {
	return &program.Program{
		ID:              uuid.New(),
		MerchantID:      merchantID,
		Name:            "Coffee Points",
		Kind:            program.KindPoints,
		EarnRate:        1,
		RewardThreshold: 10,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func punchCardProgram(merchantID uuid.UUID) *program.Program {
	return &program.Program{
		ID:              uuid.New(),
		MerchantID:      merchantID,
		Name:            "Sandwich Card",
		Kind:            program.KindPunchCard,
		RewardThreshold: 8,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}
