package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/observability"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// FinalizeFields carries the provider's view of a finished transaction.
type FinalizeFields struct {
	Channel         string
	GatewayResponse string
	ResultCode      string
	PaidAt          *time.Time
}

// LedgerService owns the transaction ledger. Every gateway-bound payment is
// recorded pending before the caller sees a checkout URL, and wallet balances
// move only when a row is finalized as success.
type LedgerService struct {
	store QueryStore
	audit *AuditService
}

func NewLedgerService(store QueryStore, audit *AuditService) *LedgerService {
	return &LedgerService{store: store, audit: audit}
}

// RecordPending inserts a pending ledger row inside the caller's transaction.
func (s *LedgerService) RecordPending(ctx context.Context, qtx *repository.Queries, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.Status = domain.TxStatusPending
	if tx.Currency == "" {
		tx.Currency = domain.CurrencyKES
	}
	if err := qtx.CreateTransaction(ctx, tx); err != nil {
		return err
	}
	return s.audit.Write(ctx, qtx, "transaction", tx.Reference, nil,
		"record_pending", "", domain.TxStatusPending, nil)
}

// Finalize writes the terminal status for a gateway reference. It is
// idempotent: repeating the stored status is a no-op, and a conflicting
// status after a terminal one is flagged as a ledger inconsistency while the
// first writer's status stands. Both converging paths (explicit verify, the
// provider callback, the background worker) funnel through here.
func (s *LedgerService) Finalize(ctx context.Context, reference, status string, fields FinalizeFields) (*models.Transaction, error) {
	status = normalizeState(status)
	if status != domain.TxStatusSuccess && status != domain.TxStatusFailed {
		return nil, fmt.Errorf("%w: finalize to %q", models.ErrInvalidTransition, status)
	}

	var result *models.Transaction
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		current, err := q.GetTransactionByReferenceForUpdate(ctx, reference)
		if err != nil {
			return fmt.Errorf("load transaction %s: %w", reference, err)
		}

		if normalizeState(current.Status) == status {
			result = current
			return nil
		}

		if !canTransition(current.Status, status) {
			// First writer wins. The divergent report is recorded for
			// operators but the stored status is never overwritten.
			zap.L().Warn("conflicting finalization ignored",
				zap.String("reference", reference),
				zap.String("stored_status", current.Status),
				zap.String("reported_status", status))
			observability.IncrementLedgerInconsistency(current.Purpose)

			meta, _ := json.Marshal(map[string]string{
				"reported_status":  status,
				"gateway_response": fields.GatewayResponse,
			})
			if err := s.audit.Write(ctx, q, "transaction", reference, nil,
				"finalize_conflict", current.Status, current.Status, meta); err != nil {
				return err
			}
			result = current
			return nil
		}

		updated, err := q.FinalizeTransaction(ctx, reference, status,
			fields.Channel, fields.GatewayResponse, fields.ResultCode, fields.PaidAt)
		if err != nil {
			return fmt.Errorf("finalize transaction %s: %w", reference, err)
		}

		if err := s.audit.Write(ctx, q, "transaction", reference, nil,
			"finalize", current.Status, status, nil); err != nil {
			return err
		}

		switch status {
		case domain.TxStatusSuccess:
			if err := s.applySuccessEffects(ctx, q, updated); err != nil {
				return err
			}
		case domain.TxStatusFailed:
			if err := s.applyFailureEffects(ctx, q, updated); err != nil {
				return err
			}
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applySuccessEffects credits the destination the payment was for. Balances
// change only here, never optimistically at initiation.
func (s *LedgerService) applySuccessEffects(ctx context.Context, q *repository.Queries, tx *models.Transaction) error {
	switch tx.Purpose {
	case domain.PurposeContribution:
		if !tx.ChamaID.Valid {
			return fmt.Errorf("contribution %s has no chama", tx.Reference)
		}
		member, err := q.GetMember(ctx, tx.ChamaID.UUID, tx.UserID)
		if err != nil {
			return fmt.Errorf("resolve contributing member: %w", err)
		}
		if _, err := q.AdjustMemberBalances(ctx, member.ID, tx.Amount, 0); err != nil {
			return fmt.Errorf("credit savings balance: %w", err)
		}
		if err := q.AddChamaSavings(ctx, tx.ChamaID.UUID, tx.Amount); err != nil {
			return err
		}

	case domain.PurposeRegistration:
		if !tx.ChamaID.Valid {
			return fmt.Errorf("registration %s has no chama", tx.Reference)
		}
		// Lock the chama row so concurrent registration finalizes serialize
		// and the loser sees the activated status instead of a silent no-op.
		chama, err := q.GetChamaForUpdate(ctx, tx.ChamaID.UUID)
		if err != nil {
			return fmt.Errorf("lock chama: %w", err)
		}
		if chama.Status != "available" {
			return fmt.Errorf("%w: chama already activated", models.ErrInvalidTransition)
		}
		if err := q.ActivateChama(ctx, tx.ChamaID.UUID, tx.UserID); err != nil {
			return fmt.Errorf("activate chama: %w", err)
		}
		if err := q.IncrementChamaMembers(ctx, tx.ChamaID.UUID); err != nil {
			return err
		}
		if err := q.CreateChamaMember(ctx, &models.ChamaMember{
			ID:      uuid.New(),
			ChamaID: tx.ChamaID.UUID,
			UserID:  tx.UserID,
			Role:    domain.RoleAdmin,
		}); err != nil {
			return err
		}

	case domain.PurposeWithdrawal:
		// MGR was debited when the withdrawal was dispatched; the payout
		// settling needs no further balance movement.

	default:
		// Personal savings and plain deposits land in the personal wallet.
		if _, err := q.EnsureUserWallet(ctx, tx.UserID); err != nil {
			return err
		}
		if _, err := q.CreditUserWallet(ctx, tx.UserID, tx.Amount); err != nil {
			return fmt.Errorf("credit user wallet: %w", err)
		}
	}
	return nil
}

// applyFailureEffects unwinds balance holds taken at initiation.
func (s *LedgerService) applyFailureEffects(ctx context.Context, q *repository.Queries, tx *models.Transaction) error {
	if tx.Purpose != domain.PurposeWithdrawal || !tx.ChamaID.Valid {
		return nil
	}
	member, err := q.GetMember(ctx, tx.ChamaID.UUID, tx.UserID)
	if err != nil {
		return fmt.Errorf("resolve withdrawing member: %w", err)
	}
	if _, err := q.AdjustMemberBalances(ctx, member.ID, 0, tx.Amount); err != nil {
		return fmt.Errorf("refund failed withdrawal: %w", err)
	}
	return s.audit.Write(ctx, q, "chama_member", member.ID.String(), nil,
		"withdrawal_refund", "", "", nil)
}
