package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hanzara/chamapay-backend/internal/observability"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// VerifyWorker re-checks stale pending transactions against the gateway.
// Abandoned checkouts and missed callbacks converge on a terminal status
// without user action.
type VerifyWorker struct {
	payments     *service.PaymentService
	pollInterval time.Duration
	pendingAge   time.Duration
	batchSize    int32
	stopCh       chan struct{}
}

// NewVerifyWorker creates a new VerifyWorker instance.
func NewVerifyWorker(payments *service.PaymentService) *VerifyWorker {
	return &VerifyWorker{
		payments:     payments,
		pollInterval: 30 * time.Second,
		pendingAge:   2 * time.Minute,
		batchSize:    20,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *VerifyWorker) WithPollInterval(interval time.Duration) *VerifyWorker {
	w.pollInterval = interval
	return w
}

// WithPendingAge sets how old a pending transaction must be before re-verification.
func (w *VerifyWorker) WithPendingAge(age time.Duration) *VerifyWorker {
	w.pendingAge = age
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *VerifyWorker) WithBatchSize(size int32) *VerifyWorker {
	w.batchSize = size
	return w
}

// Start begins the background worker.
// It runs in a loop until Stop is called or the context is canceled.
func (w *VerifyWorker) Start(ctx context.Context) {
	log.Printf("[VerifyWorker] Starting with poll interval: %v, pending age: %v, batch size: %d",
		w.pollInterval, w.pendingAge, w.batchSize)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[VerifyWorker] Context canceled, stopping...")
			return
		case <-w.stopCh:
			log.Println("[VerifyWorker] Stop signal received, stopping...")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *VerifyWorker) Stop() {
	close(w.stopCh)
}

func (w *VerifyWorker) processBatch(ctx context.Context) {
	_, err := w.payments.ProcessStalePending(ctx, w.pendingAge, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("verify", "error")
		log.Printf("[VerifyWorker] Error verifying stale transactions: %v", err)
		return
	}
	observability.IncrementWorkerRun("verify", "ok")
}

// ProcessOnce processes a single batch immediately.
// Useful for testing or manual triggering.
func (w *VerifyWorker) ProcessOnce(ctx context.Context) error {
	_, err := w.payments.ProcessStalePending(ctx, w.pendingAge, w.batchSize)
	return err
}

// Run starts the worker and returns a function that can be called to stop it.
func (w *VerifyWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// String returns a string representation of the worker.
func (w *VerifyWorker) String() string {
	return fmt.Sprintf("VerifyWorker(interval=%v, age=%v, batch=%d)", w.pollInterval, w.pendingAge, w.batchSize)
}
