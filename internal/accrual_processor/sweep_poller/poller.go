// Package sweep_poller periodically expires stale unredeemed ledger buckets.
package sweep_poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/loyalty-ledger/internal/config"
)

// Sweeper is the engine behavior the poller drives.
type Sweeper interface {
	SweepDue(ctx context.Context, asOf time.Time, batchSize int) (int, error)
}

// Poller runs the expiry sweep on a fixed interval. The sweep itself is
// idempotent, so overlapping deployments or a crashed tick cost nothing.
type Poller struct {
	sweeper      Sweeper
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewPoller(cfg *config.SweeperConfig, sweeper Sweeper, logger *slog.Logger) *Poller {
	return &Poller{
		sweeper:      sweeper,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
	}
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting expiry sweep poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Expiry sweep poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.runSweep(ctx)
		}
	}
}

func (p *Poller) runSweep(ctx context.Context) {
	asOf := time.Now().UTC()
	expired, err := p.sweeper.SweepDue(ctx, asOf, p.batchSize)
	if err != nil {
		p.logger.Error("Expiry sweep failed", "as_of", asOf, "expired_before_failure", expired, "error", err)
		return
	}
	if expired > 0 {
		p.logger.Info("Expiry sweep completed", "as_of", asOf, "expired_entries", expired)
	} else {
		p.logger.Debug("Expiry sweep completed with nothing to expire", "as_of", asOf)
	}
}
