package service

import (
	"context"
	"log/slog"

	"github.com/loyalty-ledger/internal/domain/ledger"
	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/loyalty-ledger/internal/platform/messaging/producers"
)

type ProcessingServiceImpl struct {
	engine   LoyaltyEngine
	notifier producers.MessagePublisher
	logger   *slog.Logger
}

// NewProcessingService creates the earn processing service. notifier may be
// nil when the notification topic is disabled.
func NewProcessingService(
	logger *slog.Logger,
	engine LoyaltyEngine,
	notifier producers.MessagePublisher,
) ProcessingService {
	return &ProcessingServiceImpl{
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessEarn runs one earn request through the accrual engine. Errors are
// returned as-is: the consumer layer decides between retry (transient store
// failures) and dead-lettering (business rejections).
func (s *ProcessingServiceImpl) ProcessEarn(ctx context.Context, request *shared.EarnRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing earn request",
		"customer_id", request.CustomerID.String(),
		"program_id", request.ProgramID.String(),
		"purchase_amount", request.PurchaseAmount,
	)

	entry, err := s.engine.Earn(ctx, request)
	if err != nil {
		return err
	}

	s.notifyIfUnlocked(ctx, logger, entry)

	logger.Info("Earn request processed", "entry_id", entry.ID.String(), "amount", entry.Amount)
	return nil
}

// notifyIfUnlocked emits a reward_unlocked event when the earn crossed the
// program threshold. Best effort: the ledger entry is already committed, so
// notification failures are logged and swallowed.
func (s *ProcessingServiceImpl) notifyIfUnlocked(ctx context.Context, logger *slog.Logger, entry *ledger.Entry) {
	if s.notifier == nil {
		return
	}

	bal, err := s.engine.RewardUnlocked(ctx, entry)
	if err != nil {
		logger.Error("Failed to evaluate reward threshold crossing",
			"entry_id", entry.ID.String(),
			"error", err,
		)
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
		logger.Error("Failed to publish reward_unlocked notification",
			"entry_id", entry.ID.String(),
			"error", err,
		)
		return
	}
	logger.Info("Published reward_unlocked notification",
		"customer_id", entry.CustomerID.String(),
		"program_id", entry.ProgramID.String(),
	)
}
