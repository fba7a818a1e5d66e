package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hanzara/chamapay-backend/internal/api"
	"github.com/hanzara/chamapay-backend/internal/api/middleware"
	"github.com/hanzara/chamapay-backend/internal/config"
	"github.com/hanzara/chamapay-backend/internal/db"
	"github.com/hanzara/chamapay-backend/internal/gateway"
	"github.com/hanzara/chamapay-backend/internal/idempotency"
	"github.com/hanzara/chamapay-backend/internal/observability"
	"github.com/hanzara/chamapay-backend/internal/repository"
	"github.com/hanzara/chamapay-backend/internal/service"
	"github.com/hanzara/chamapay-backend/internal/worker"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)
	store := repository.NewStore(pool)

	paystack := gateway.NewPaystack(cfg.PaystackBaseURL, cfg.PaystackSecretKey)

	auditSvc := service.NewAuditService(store)
	ledgerSvc := service.NewLedgerService(store, auditSvc)
	paymentSvc := service.NewPaymentService(store, paystack, ledgerSvc, cfg.CallbackURL)
	walletSvc := service.NewWalletService(store, ledgerSvc, auditSvc)
	chamaSvc := service.NewChamaService(store, paymentSvc, auditSvc)
	contributionSvc := service.NewContributionService(store, auditSvc)
	loanSvc := service.NewLoanService(store, auditSvc)
	savingsSvc := service.NewSavingsService(store, auditSvc)
	webhookSvc := service.NewWebhookService(store, ledgerSvc, cfg.CallbackHMACKey, cfg.CallbackSkipSignature)
	payoutSvc := service.NewPayoutService(store, paystack, ledgerSvc)
	reconciliationSvc := service.NewReconciliationService(store)

	verifyWorker := worker.NewVerifyWorker(paymentSvc).
		WithPollInterval(cfg.VerifyPollInterval).
		WithPendingAge(cfg.VerifyPendingAge).
		WithBatchSize(cfg.VerifyBatchSize)
	stopVerify := verifyWorker.Run(ctx)
	logger.Info("verify worker started",
		zap.Duration("interval", cfg.VerifyPollInterval),
		zap.Int32("batch", cfg.VerifyBatchSize))

	payoutWorker := worker.NewPayoutWorker(payoutSvc).
		WithPollInterval(cfg.PayoutPollInterval).
		WithBatchSize(cfg.PayoutBatchSize)
	stopPayout := payoutWorker.Run(ctx)
	logger.Info("payout worker started",
		zap.Duration("interval", cfg.PayoutPollInterval),
		zap.Int32("batch", cfg.PayoutBatchSize))

	reconciliationWorker := worker.NewReconciliationWorker(reconciliationSvc).
		WithInterval(cfg.ReconciliationInterval)
	stopReconciliation := reconciliationWorker.Run(ctx)
	logger.Info("reconciliation worker started", zap.Duration("interval", cfg.ReconciliationInterval))

	router := api.NewRouter(api.Dependencies{
		DB:                 pool,
		Redis:              redisClient,
		Store:              store,
		Idempotency:        idemStore,
		Logger:             logger,
		Payments:           paymentSvc,
		Wallets:            walletSvc,
		Chamas:             chamaSvc,
		Contributions:      contributionSvc,
		Loans:              loanSvc,
		Savings:            savingsSvc,
		Webhooks:           webhookSvc,
		PublicRateLimitRPS: cfg.PublicRateLimitRPS,
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopVerify()
	stopPayout()
	stopReconciliation()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
