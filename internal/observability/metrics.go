package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	httpDurationHistogram     *prometheus.HistogramVec
	gatewayRequestCounter     *prometheus.CounterVec
	ledgerInconsistencyCount  *prometheus.CounterVec
	walletOperationCounter    *prometheus.CounterVec
	idempotencyCounter        *prometheus.CounterVec
	pendingVerificationsGauge prometheus.Gauge
	reconciliationDriftCount  *prometheus.CounterVec
	workerRunCounter          *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		gatewayRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Payment gateway calls by operation and outcome",
		}, []string{"operation", "result"})

		ledgerInconsistencyCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_inconsistency_total",
			Help: "Conflicting finalizations against already-final transactions",
		}, []string{"purpose"})

		walletOperationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_operations_total",
			Help: "Wallet dispatcher outcomes",
		}, []string{"operation", "result"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		pendingVerificationsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pending_transactions_queue_size",
			Help: "Stale pending transactions seen on the last verification sweep",
		})

		reconciliationDriftCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_drift_total",
			Help: "Wallet totals diverging from successful ledger rows",
		}, []string{"kind"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			gatewayRequestCounter,
			ledgerInconsistencyCount,
			walletOperationCounter,
			idempotencyCounter,
			pendingVerificationsGauge,
			reconciliationDriftCount,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementGatewayRequest(operation, result string) {
	if gatewayRequestCounter == nil {
		return
	}
	gatewayRequestCounter.WithLabelValues(operation, result).Inc()
}

func IncrementLedgerInconsistency(purpose string) {
	if ledgerInconsistencyCount == nil {
		return
	}
	ledgerInconsistencyCount.WithLabelValues(purpose).Inc()
}

func IncrementWalletOperation(operation, result string) {
	if walletOperationCounter == nil {
		return
	}
	walletOperationCounter.WithLabelValues(operation, result).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetPendingVerificationQueueSize(size int64) {
	if pendingVerificationsGauge == nil {
		return
	}
	pendingVerificationsGauge.Set(float64(size))
}

func IncrementReconciliationDrift(kind string) {
	if reconciliationDriftCount == nil {
		return
	}
	reconciliationDriftCount.WithLabelValues(kind).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
