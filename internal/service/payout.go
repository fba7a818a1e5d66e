package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/gateway"
	"github.com/hanzara/chamapay-backend/internal/observability"
)

// PayoutService executes the external leg of member withdrawals. Dispatch
// takes the MGR hold and records a pending withdrawal row; this service sends
// the money out through the gateway and finalizes the row, which releases the
// hold when the transfer is declined.
type PayoutService struct {
	store  QueryStore
	gw     gateway.Gateway
	ledger *LedgerService
}

func NewPayoutService(store QueryStore, gw gateway.Gateway, ledger *LedgerService) *PayoutService {
	return &PayoutService{store: store, gw: gw, ledger: ledger}
}

// ProcessPendingWithdrawals sends one batch of withdrawal holds to the
// gateway, oldest first. A gateway outage stops the sweep so the remaining
// rows are retried on the next tick with the provider's ordering intact.
func (s *PayoutService) ProcessPendingWithdrawals(ctx context.Context, batchSize int32) (int, error) {
	pending, err := s.store.Queries().ListPendingWithdrawals(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		// Channel carries the payment method the member chose at dispatch.
		destination := tx.Channel
		if destination == "" {
			destination = "mobile_money"
		}

		gatewayRef, err := s.gw.SendPayout(ctx, destination, tx.Amount, tx.Currency)
		if err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				observability.IncrementGatewayRequest("payout", "error")
				return processed, err
			}
			observability.IncrementGatewayRequest("payout", "rejected")
			if _, ferr := s.ledger.Finalize(ctx, tx.Reference, domain.TxStatusFailed, FinalizeFields{
				Channel:         destination,
				GatewayResponse: err.Error(),
			}); ferr != nil {
				zap.L().Error("declined payout finalize failed",
					zap.String("reference", tx.Reference),
					zap.Error(ferr))
				continue
			}
			processed++
			continue
		}
		observability.IncrementGatewayRequest("payout", "ok")

		now := time.Now().UTC()
		if _, ferr := s.ledger.Finalize(ctx, tx.Reference, domain.TxStatusSuccess, FinalizeFields{
			Channel:         destination,
			GatewayResponse: "Transfer sent",
			ResultCode:      gatewayRef,
			PaidAt:          &now,
		}); ferr != nil {
			// The money left but the row is still pending. A retry would
			// pay twice, so flag the row for operators instead.
			observability.IncrementLedgerInconsistency(tx.Purpose)
			zap.L().Error("payout sent but finalize failed, row needs operator attention",
				zap.String("reference", tx.Reference),
				zap.String("gateway_reference", gatewayRef),
				zap.Error(ferr))
			continue
		}
		processed++
	}
	return processed, nil
}
