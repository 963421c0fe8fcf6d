package service

import (
	"context"
	"log/slog"

	"github.com/loyalty-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService fans earn processing out over an ants pool
// while keeping the consumer's at-least-once contract: ProcessEarn blocks
// until the worker finishes so the Kafka offset is only committed for
// requests that actually reached the ledger.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessEarn submits an earn request to the worker pool and waits for the
// result.
func (s *WorkerPoolProcessingService) ProcessEarn(ctx context.Context, request *shared.EarnRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting earn request to worker pool",
		"customer_id", request.CustomerID.String(),
		"program_id", request.ProgramID.String(),
	)

	resultChan := make(chan error, 1)

	// Copy the request to avoid data races with the caller.
	requestCopy := *request

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessEarn(ctx, &requestCopy)
	})
	if err != nil {
		logger.Error("Failed to submit earn request to worker pool",
			"customer_id", request.CustomerID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
