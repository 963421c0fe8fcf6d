package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/loyalty-ledger/internal/engine"
	"github.com/loyalty-ledger/internal/platform/messaging/producers"
)

// LoyaltyServiceImpl implements the LoyaltyService interface
type LoyaltyServiceImpl struct {
	engine       LedgerEngine
	ledgerRepo   ledger.Repository
	earnProducer producers.MessagePublisher
	notifier     producers.MessagePublisher
	logger       *slog.Logger
}

// NewLoyaltyService creates a new loyalty service. earnProducer may be nil
// when async ingestion is disabled; notifier may be nil when the notification
// topic is disabled.
func NewLoyaltyService(
	logger *slog.Logger,
	eng LedgerEngine,
	ledgerRepo ledger.Repository,
	earnProducer producers.MessagePublisher,
	notifier producers.MessagePublisher,
) LoyaltyService {
	return &LoyaltyServiceImpl{
		engine:       eng,
		ledgerRepo:   ledgerRepo,
		earnProducer: earnProducer,
		notifier:     notifier,
		logger:       logger,
	}
}

// Earn records an accrual synchronously through the engine
func (s *LoyaltyServiceImpl) Earn(ctx context.Context, request *shared.EarnRequest) (*ledger.Entry, error) {
	entry, err := s.engine.Earn(ctx, request)
	if err != nil {
		return nil, err
	}

	s.notifyIfUnlocked(ctx, entry)
	return entry, nil
}

// EnqueueEarn publishes an earn request to the ingestion topic, keyed by
// partition so one consumer sees all of a customer-program pair's events in
// order. Returns the existing entry when the idempotency key was already
// consumed, mirroring the synchronous path's replay behavior.
func (s *LoyaltyServiceImpl) EnqueueEarn(ctx context.Context, request *shared.EarnRequest) (*ledger.Entry, error) {
	if request.IdempotencyKey != "" {
		existing, err := s.ledgerRepo.GetByIdempotencyKey(ctx, request.IdempotencyKey)
		if err != nil {
			s.logger.Error("Failed to check idempotency key before enqueue",
				"idempotency_key", request.IdempotencyKey,
				"error", err,
			)
			return nil, shared.WrapStoreUnavailable(err)
		}
		if existing != nil {
			s.logger.Info("Found existing entry for idempotency key, skipping enqueue",
				"idempotency_key", request.IdempotencyKey,
				"entry_id", existing.ID.String(),
			)
			return existing, nil
		}
	}

	key := ledger.Partition{CustomerID: request.CustomerID, ProgramID: request.ProgramID}.Key()
	if err := s.earnProducer.Publish(ctx, key, request); err != nil {
		s.logger.Error("Failed to publish earn request",
			"customer_id", request.CustomerID.String(),
			"program_id", request.ProgramID.String(),
			"error", err,
		)
		return nil, shared.WrapStoreUnavailable(err)
	}

	s.logger.Info("Earn request enqueued",
		"customer_id", request.CustomerID.String(),
		"program_id", request.ProgramID.String(),
		"purchase_amount", request.PurchaseAmount,
	)
	return nil, nil
}

// Redeem spends units against a reward through the engine
func (s *LoyaltyServiceImpl) Redeem(ctx context.Context, request *shared.RedeemRequest) (*ledger.Entry, error) {
	entry, err := s.engine.Redeem(ctx, request)
	if err != nil {
		return nil, err
	}

	s.notifyRedeemed(ctx, entry)
	return entry, nil
}

// GetBalance projects the current balance for a partition
func (s *LoyaltyServiceImpl) GetBalance(ctx context.Context, customerID, programID uuid.UUID) (*engine.Balance, error) {
	return s.engine.Project(ctx, customerID, programID, time.Now().UTC())
}

// GetEntry retrieves one ledger entry. Returns nil if not found
func (s *LoyaltyServiceImpl) GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	entry, err := s.ledgerRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound{}) {
			return nil, nil
		}
		s.logger.Error("Failed to get ledger entry", "entry_id", entryID.String(), "error", err)
		return nil, err
	}
	return entry, nil
}

// ListEntries retrieves a newest-first page of partition history
func (s *LoyaltyServiceImpl) ListEntries(ctx context.Context, customerID, programID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.ListByPartitionPage(ctx, customerID, programID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByPartition(ctx, customerID, programID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// notifyIfUnlocked publishes reward_unlocked when the earn crossed the
// program threshold. Best effort: the entry is already committed.
func (s *LoyaltyServiceImpl) notifyIfUnlocked(ctx context.Context, entry *ledger.Entry) {
	if s.notifier == nil {
		return
	}

	bal, err := s.engine.RewardUnlocked(ctx, entry)
	if err != nil {
		s.logger.Error("Failed to evaluate reward threshold crossing", "entry_id", entry.ID.String(), "error", err)
		return
	}
	if bal == nil {
		return
	}

	event := &shared.NotificationEvent{
		Type:           shared.NotificationRewardUnlocked,
		MerchantID:     entry.MerchantID,
		CustomerID:     entry.CustomerID,
		ProgramID:      entry.ProgramID,
		AvailableUnits: bal.AvailableUnits,
		OccurredAt:     entry.OccurredAt,
	}
	if err := s.notifier.Publish(ctx, entry.CustomerID.String(), event); err != nil {
		s.logger.Error("Failed to publish reward_unlocked notification", "entry_id", entry.ID.String(), "error", err)
	}
}

// notifyRedeemed publishes reward_redeemed after a successful redemption.
func (s *LoyaltyServiceImpl) notifyRedeemed(ctx context.Context, entry *ledger.Entry) {
	if s.notifier == nil {
		return
	}

	bal, err := s.engine.Project(ctx, entry.CustomerID, entry.ProgramID, time.Now().UTC())
	if err != nil {
		s.logger.Error("Failed to project balance after redemption", "entry_id", entry.ID.String(), "error", err)
		return
	}

	event := &shared.NotificationEvent{
		Type:           shared.NotificationRewardRedeemed,
		MerchantID:     entry.MerchantID,
		CustomerID:     entry.CustomerID,
		ProgramID:      entry.ProgramID,
		RewardID:       entry.RewardID,
		AvailableUnits: bal.AvailableUnits,
		OccurredAt:     entry.OccurredAt,
	}
	if err := s.notifier.Publish(ctx, entry.CustomerID.String(), event); err != nil {
		s.logger.Error("Failed to publish reward_redeemed notification", "entry_id", entry.ID.String(), "error", err)
	}
}
