package sweep_poller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loyalty-ledger/internal/config"
)

type fakeSweeper struct {
	calls   atomic.Int64
	expired int
	err     error
}

func (f *fakeSweeper) SweepDue(ctx context.Context, asOf time.Time, batchSize int) (int, error) {
	f.calls.Add(1)
	return f.expired, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPoller_Start(t *testing.T) {
	t.Run("SweepsOnEachTick", func(t *testing.T) {
		sweeper := &fakeSweeper{expired: 3}
		cfg := &config.SweeperConfig{PollingInterval: 10 * time.Millisecond, BatchSize: 50}
		poller := NewPoller(cfg, sweeper, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			poller.Start(ctx)
			close(done)
		}()

		time.Sleep(60 * time.Millisecond)
		cancel()
		<-done

		assert.GreaterOrEqual(t, sweeper.calls.Load(), int64(2))
	})

	t.Run("KeepsPollingAfterSweepError", func(t *testing.T) {
		sweeper := &fakeSweeper{err: errors.New("store unavailable")}
		cfg := &config.SweeperConfig{PollingInterval: 10 * time.Millisecond, BatchSize: 50}
		poller := NewPoller(cfg, sweeper, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			poller.Start(ctx)
			close(done)
		}()

		time.Sleep(60 * time.Millisecond)
		cancel()
		<-done

		assert.GreaterOrEqual(t, sweeper.calls.Load(), int64(2), "errors must not stop the poll loop")
	})
}
