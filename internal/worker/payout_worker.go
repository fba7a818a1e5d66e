package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hanzara/chamapay-backend/internal/observability"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// PayoutWorker drains pending withdrawal holds by sending them to the
// gateway. Each settled row finalizes the ledger, so a declined transfer
// releases the member's hold without user action.
type PayoutWorker struct {
	payouts      *service.PayoutService
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
}

// NewPayoutWorker creates a new PayoutWorker instance.
func NewPayoutWorker(payouts *service.PayoutService) *PayoutWorker {
	return &PayoutWorker{
		payouts:      payouts,
		pollInterval: 10 * time.Second,
		batchSize:    10,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *PayoutWorker) WithPollInterval(interval time.Duration) *PayoutWorker {
	w.pollInterval = interval
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *PayoutWorker) WithBatchSize(size int32) *PayoutWorker {
	w.batchSize = size
	return w
}

// Start begins the background worker.
// It runs in a loop until Stop is called or the context is canceled.
func (w *PayoutWorker) Start(ctx context.Context) {
	log.Printf("[PayoutWorker] Starting with poll interval: %v, batch size: %d",
		w.pollInterval, w.batchSize)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[PayoutWorker] Context canceled, stopping...")
			return
		case <-w.stopCh:
			log.Println("[PayoutWorker] Stop signal received, stopping...")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *PayoutWorker) Stop() {
	close(w.stopCh)
}

func (w *PayoutWorker) processBatch(ctx context.Context) {
	_, err := w.payouts.ProcessPendingWithdrawals(ctx, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("payout", "error")
		log.Printf("[PayoutWorker] Error processing pending withdrawals: %v", err)
		return
	}
	observability.IncrementWorkerRun("payout", "ok")
}

// ProcessOnce processes a single batch immediately.
// Useful for testing or manual triggering.
func (w *PayoutWorker) ProcessOnce(ctx context.Context) error {
	_, err := w.payouts.ProcessPendingWithdrawals(ctx, w.batchSize)
	return err
}

// Run starts the worker and returns a function that can be called to stop it.
func (w *PayoutWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// String returns a string representation of the worker.
func (w *PayoutWorker) String() string {
	return fmt.Sprintf("PayoutWorker(interval=%v, batch=%d)", w.pollInterval, w.batchSize)
}
