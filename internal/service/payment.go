package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/gateway"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/observability"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// PaymentService drives checkout initialization and verification against the
// payment gateway, recording every attempt in the ledger.
type PaymentService struct {
	store       QueryStore
	gw          gateway.Gateway
	ledger      *LedgerService
	callbackURL string
}

func NewPaymentService(store QueryStore, gw gateway.Gateway, ledger *LedgerService, callbackURL string) *PaymentService {
	return &PaymentService{
		store:       store,
		gw:          gw,
		ledger:      ledger,
		callbackURL: callbackURL,
	}
}

// InitializeInput describes a checkout request. Amount is in shillings as
// entered by the user; it is converted to cents before touching the gateway.
type InitializeInput struct {
	UserID   uuid.UUID
	Email    string
	Amount   decimal.Decimal
	Purpose  string
	ChamaID  uuid.NullUUID
	Channels []string
	Metadata map[string]any
}

// InitializeOutput is the checkout handle returned to the caller.
type InitializeOutput struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Initialize creates a provider checkout and records the pending ledger row.
// A ledger write failure aborts the call: the caller gets an error rather
// than a checkout URL that the backend would not recognize later. The orphan
// gateway reference is logged so reconciliation can backfill it.
func (s *PaymentService) Initialize(ctx context.Context, in InitializeInput) (*InitializeOutput, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	amount := domain.FromShillings(in.Amount)
	if !amount.IsPositive() {
		return nil, models.ErrInvalidAmount
	}
	purpose := in.Purpose
	if purpose == "" {
		purpose = domain.PurposeOther
	}

	metadata := map[string]any{"purpose": purpose}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	if in.ChamaID.Valid {
		metadata["chama_id"] = in.ChamaID.UUID.String()
	}

	res, err := s.gw.Initialize(ctx, gateway.InitializeParams{
		Email:       in.Email,
		AmountMinor: amount.MinorUnits(),
		Currency:    amount.Currency,
		CallbackURL: s.callbackURL,
		Channels:    in.Channels,
		Metadata:    metadata,
	})
	if err != nil {
		observability.IncrementGatewayRequest("initialize", "error")
		return nil, err
	}
	observability.IncrementGatewayRequest("initialize", "ok")

	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		return s.ledger.RecordPending(ctx, q, &models.Transaction{
			UserID:     in.UserID,
			ChamaID:    in.ChamaID,
			Reference:  res.Reference,
			AccessCode: res.AccessCode,
			Purpose:    purpose,
			Amount:     amount.Amount,
			Currency:   amount.Currency,
		})
	})
	if err != nil {
		zap.L().Error("pending ledger write failed after gateway initialize",
			zap.String("reference", res.Reference),
			zap.String("purpose", purpose),
			zap.Error(err))
		return nil, fmt.Errorf("record pending transaction: %w", err)
	}

	return &InitializeOutput{
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        res.Reference,
	}, nil
}

// Verify asks the provider for the final word on a reference and finalizes
// the ledger row accordingly.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*models.Transaction, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("%w: reference is required", models.ErrNotFound)
	}

	res, err := s.gw.Verify(ctx, reference)
	if err != nil {
		observability.IncrementGatewayRequest("verify", "error")
		return nil, err
	}
	observability.IncrementGatewayRequest("verify", "ok")

	return s.ledger.Finalize(ctx, reference, res.Status, FinalizeFields{
		Channel:         res.Channel,
		GatewayResponse: res.GatewayResponse,
		ResultCode:      res.Status,
		PaidAt:          res.PaidAt,
	})
}

// ProcessStalePending re-verifies pending transactions older than the given
// age. A gateway outage stops the sweep; remaining rows are retried on the
// next tick. Withdrawal holds are not gateway checkouts and settle through
// the payout executor instead.
func (s *PaymentService) ProcessStalePending(ctx context.Context, olderThan time.Duration, batchSize int32) (int, error) {
	stale, err := s.store.Queries().ListStalePendingTransactions(ctx, olderThan, batchSize)
	if err != nil {
		return 0, err
	}
	observability.SetPendingVerificationQueueSize(int64(len(stale)))

	processed := 0
	for _, tx := range stale {
		if tx.Purpose == domain.PurposeWithdrawal {
			continue
		}
		if _, err := s.Verify(ctx, tx.Reference); err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				return processed, err
			}
			zap.L().Warn("stale transaction verification failed",
				zap.String("reference", tx.Reference),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

// ListUserTransactions pages a user's ledger history, newest first.
func (s *PaymentService) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.Queries().ListTransactionsByUser(ctx, userID, limit, offset)
}
