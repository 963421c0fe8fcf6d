// Package consumer adapts Kafka messages into accrual engine calls.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/loyalty-ledger/internal/accrual_processor/service"
	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/loyalty-ledger/internal/platform/messaging/producers"
)

// EarnEventHandler handles incoming earn request messages from Kafka
type EarnEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewEarnEventHandler creates a new handler
func NewEarnEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *EarnEventHandler {
	return &EarnEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes one Kafka message. Returning nil commits the
// offset; returning an error makes the consumer redeliver. Unparseable
// payloads and business rejections go to the DLQ because redelivery can
// never fix them; only transient store failures are retried.
func (h *EarnEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.EarnRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal earn request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error()), err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received earn request for processing",
		"customer_id", request.CustomerID.String(),
		"program_id", request.ProgramID.String(),
		"purchase_amount", request.PurchaseAmount,
	)

	if err := h.processingService.ProcessEarn(ctx, &request); err != nil {
		if shared.IsRetryable(err) {
			logger.Error("Transient failure processing earn request, will retry",
				"customer_id", request.CustomerID.String(),
				"program_id", request.ProgramID.String(),
				"error", err,
			)
			return fmt.Errorf("processing earn request failed: %w", err)
		}

		logger.Warn("Earn request rejected",
			"customer_id", request.CustomerID.String(),
			"program_id", request.ProgramID.String(),
			"error", err,
		)
		return h.deadLetter(ctx, key, value, err.Error(), err)
	}

	logger.Info("Successfully processed earn request",
		"customer_id", request.CustomerID.String(),
		"program_id", request.ProgramID.String(),
	)
	return nil
}

// deadLetter routes an unprocessable message to the DLQ. If the DLQ is
// disabled or the publish fails, the original error is returned so Kafka
// redelivers instead of silently dropping the message.
func (h *EarnEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, original error) error {
	if h.producer == nil {
		return fmt.Errorf("unprocessable earn message and no DLQ configured: %w", original)
	}
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", original,
			"message_key", string(key),
		)
		return fmt.Errorf("unprocessable earn message, DLQ publish failed: %w", original)
	}
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
