package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/hanzara/chamapay-backend/internal/api/handler"
	"github.com/hanzara/chamapay-backend/internal/api/middleware"
	"github.com/hanzara/chamapay-backend/internal/api/spec"
	"github.com/hanzara/chamapay-backend/internal/idempotency"
	"github.com/hanzara/chamapay-backend/internal/repository"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// Dependencies carries everything the router needs to build handlers.
type Dependencies struct {
	DB          *pgxpool.Pool
	Redis       redis.Cmdable
	Store       *repository.Store
	Idempotency *idempotency.Store
	Logger      *zap.Logger

	Payments      *service.PaymentService
	Wallets       *service.WalletService
	Chamas        *service.ChamaService
	Contributions *service.ContributionService
	Loans         *service.LoanService
	Savings       *service.SavingsService
	Webhooks      *service.WebhookService

	PublicRateLimitRPS int
	AuthRateLimitRPS   int
}

// NewRouter wires the HTTP surface.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(deps.Logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(deps.Logger))
	r.Use(middleware.CORSMiddleware())

	authHandler := handler.NewAuthHandler(deps.Store)
	paymentHandler := handler.NewPaymentHandler(deps.Payments)
	webhookHandler := handler.NewWebhookHandler(deps.Webhooks)
	walletHandler := handler.NewWalletHandler(deps.Wallets)
	chamaHandler := handler.NewChamaHandler(deps.Chamas)
	contributionHandler := handler.NewContributionHandler(deps.Contributions)
	loanHandler := handler.NewLoanHandler(deps.Loans)
	savingsHandler := handler.NewSavingsHandler(deps.Savings)
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(deps.PublicRateLimitRPS))

		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/payments/callback", webhookHandler.HandleCallback)
		r.Get("/v1/marketplace/chamas", chamaHandler.ListMarketplace)

		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(deps.AuthRateLimitRPS))

		idem := middleware.IdempotencyMiddleware(deps.Idempotency, deps.Logger)

		r.Post("/v1/payments", paymentHandler.Handle)
		r.Get("/v1/payments/transactions", paymentHandler.ListTransactions)

		r.Post("/v1/marketplace/chamas/{id}/purchase", chamaHandler.Purchase)

		r.Get("/v1/chamas/{id}", chamaHandler.GetChama)
		r.Get("/v1/chamas/{id}/members", chamaHandler.ListMembers)
		r.Put("/v1/chamas/{id}/settings", chamaHandler.UpdateSettings)
		r.Post("/v1/chamas/{id}/members/{mid}/lock", chamaHandler.SetWithdrawalLock)

		r.Get("/v1/chamas/{id}/wallet", walletHandler.GetBalances)
		r.With(idem).Post("/v1/chamas/{id}/wallet", walletHandler.Dispatch)

		r.Post("/v1/chamas/{id}/contributions", contributionHandler.Record)
		r.Get("/v1/chamas/{id}/contributions/pending", contributionHandler.ListPending)
		r.Post("/v1/chamas/{id}/contributions/{cid}/verify", contributionHandler.Verify)

		r.Post("/v1/chamas/{id}/loans", loanHandler.Apply)
		r.Get("/v1/chamas/{id}/loans", loanHandler.List)
		r.Post("/v1/loans/{id}/approve", loanHandler.Approve)
		r.Post("/v1/loans/{id}/reject", loanHandler.Reject)
		r.With(idem).Post("/v1/loans/{id}/repay", loanHandler.Repay)

		r.With(idem).Post("/v1/savings", savingsHandler.AddSavings)
		r.Get("/v1/savings/goals", savingsHandler.ListGoals)
	})

	return r
}
