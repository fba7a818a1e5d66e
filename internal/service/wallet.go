package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/observability"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// WalletService dispatches the three member wallet operations: topup moves
// savings into the liquid MGR balance, withdraw moves MGR out to an external
// payout, send moves MGR to another member of the same chama.
type WalletService struct {
	store  QueryStore
	ledger *LedgerService
	audit  *AuditService
}

func NewWalletService(store QueryStore, ledger *LedgerService, audit *AuditService) *WalletService {
	return &WalletService{store: store, ledger: ledger, audit: audit}
}

// WalletOpInput is a dispatch request. Amount is in shillings.
type WalletOpInput struct {
	ChamaID           uuid.UUID
	UserID            uuid.UUID
	Operation         string
	Amount            decimal.Decimal
	RecipientMemberID uuid.NullUUID
	PaymentMethod     string
}

// WalletOpResult returns the backend-authoritative balances after the
// operation; clients must not apply optimistic updates.
type WalletOpResult struct {
	Operation      string
	SavingsBalance int64
	MGRBalance     int64
	Fee            int64
	Reference      string
}

// Dispatch validates and executes a wallet operation. Structural validation
// happens before any database work: rejected requests never reach a query.
func (s *WalletService) Dispatch(ctx context.Context, in WalletOpInput) (*WalletOpResult, error) {
	op := strings.ToLower(strings.TrimSpace(in.Operation))
	amount := domain.FromShillings(in.Amount)

	if !amount.IsPositive() {
		observability.IncrementWalletOperation(op, "rejected")
		return nil, models.ErrInvalidAmount
	}

	var (
		result *WalletOpResult
		err    error
	)
	switch op {
	case domain.WalletOpTopup:
		result, err = s.topup(ctx, in, amount)
	case domain.WalletOpWithdraw:
		result, err = s.withdraw(ctx, in, amount)
	case domain.WalletOpSend:
		if !in.RecipientMemberID.Valid {
			observability.IncrementWalletOperation(op, "rejected")
			return nil, fmt.Errorf("%w: recipient is required", models.ErrNotFound)
		}
		result, err = s.send(ctx, in, amount)
	default:
		observability.IncrementWalletOperation("unknown", "rejected")
		return nil, fmt.Errorf("%w: unknown wallet operation %q", models.ErrInvalidTransition, in.Operation)
	}

	if err != nil {
		observability.IncrementWalletOperation(op, "failed")
		return nil, err
	}
	observability.IncrementWalletOperation(op, "ok")
	return result, nil
}

func (s *WalletService) topup(ctx context.Context, in WalletOpInput, amount domain.Money) (*WalletOpResult, error) {
	var result *WalletOpResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		member, err := q.GetMember(ctx, in.ChamaID, in.UserID)
		if err != nil {
			return memberError(err)
		}
		locked, err := q.GetMemberForUpdate(ctx, member.ID)
		if err != nil {
			return err
		}
		if locked.SavingsBalance < amount.Amount {
			return models.ErrInsufficientFunds
		}

		updated, err := q.AdjustMemberBalances(ctx, locked.ID, -amount.Amount, amount.Amount)
		if err != nil {
			return err
		}

		tx := &models.Transaction{
			ID:        uuid.New(),
			UserID:    in.UserID,
			ChamaID:   uuid.NullUUID{UUID: in.ChamaID, Valid: true},
			Reference: internalReference("TOPUP"),
			Purpose:   domain.PurposeWalletTopup,
			Amount:    amount.Amount,
			Currency:  amount.Currency,
			Status:    domain.TxStatusSuccess,
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "chama_member", locked.ID.String(), &in.UserID,
			"wallet_topup", "", "", nil); err != nil {
			return err
		}

		result = &WalletOpResult{
			Operation:      domain.WalletOpTopup,
			SavingsBalance: updated.SavingsBalance,
			MGRBalance:     updated.MGRBalance,
			Fee:            domain.ComputeFee(domain.FeeTopup, amount).Amount,
			Reference:      tx.Reference,
		}
		return nil
	})
	return result, err
}

func (s *WalletService) withdraw(ctx context.Context, in WalletOpInput, amount domain.Money) (*WalletOpResult, error) {
	var result *WalletOpResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		member, err := q.GetMember(ctx, in.ChamaID, in.UserID)
		if err != nil {
			return memberError(err)
		}
		locked, err := q.GetMemberForUpdate(ctx, member.ID)
		if err != nil {
			return err
		}
		if locked.WithdrawalLocked {
			return models.ErrWalletLocked
		}
		if locked.MGRBalance < amount.Amount {
			return models.ErrInsufficientFunds
		}

		updated, err := q.AdjustMemberBalances(ctx, locked.ID, 0, -amount.Amount)
		if err != nil {
			return err
		}

		// The payout settles asynchronously; the hold is released by a
		// failed finalization, never here.
		tx := &models.Transaction{
			UserID:    in.UserID,
			ChamaID:   uuid.NullUUID{UUID: in.ChamaID, Valid: true},
			Reference: internalReference("WD"),
			Purpose:   domain.PurposeWithdrawal,
			Amount:    amount.Amount,
			Currency:  amount.Currency,
			Channel:   in.PaymentMethod,
		}
		if err := s.ledger.RecordPending(ctx, q, tx); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "chama_member", locked.ID.String(), &in.UserID,
			"wallet_withdraw", "", "", nil); err != nil {
			return err
		}

		result = &WalletOpResult{
			Operation:      domain.WalletOpWithdraw,
			SavingsBalance: updated.SavingsBalance,
			MGRBalance:     updated.MGRBalance,
			Fee:            domain.ComputeFee(domain.FeeWithdrawal, amount).Amount,
			Reference:      tx.Reference,
		}
		return nil
	})
	return result, err
}

func (s *WalletService) send(ctx context.Context, in WalletOpInput, amount domain.Money) (*WalletOpResult, error) {
	var result *WalletOpResult
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		sender, err := q.GetMember(ctx, in.ChamaID, in.UserID)
		if err != nil {
			return memberError(err)
		}
		recipient, err := q.GetMemberByID(ctx, in.RecipientMemberID.UUID)
		if err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
		if recipient.ChamaID != in.ChamaID {
			return fmt.Errorf("recipient: %w", models.ErrNotAMember)
		}
		if recipient.ID == sender.ID {
			return models.ErrSelfTransfer
		}

		// Lock both rows in id order to avoid deadlocks with the
		// opposite-direction transfer.
		first, second := sender.ID, recipient.ID
		if second.String() < first.String() {
			first, second = second, first
		}
		if _, err := q.GetMemberForUpdate(ctx, first); err != nil {
			return err
		}
		if _, err := q.GetMemberForUpdate(ctx, second); err != nil {
			return err
		}

		lockedSender, err := q.GetMemberByID(ctx, sender.ID)
		if err != nil {
			return err
		}
		if lockedSender.WithdrawalLocked {
			return models.ErrWalletLocked
		}
		if lockedSender.MGRBalance < amount.Amount {
			return models.ErrInsufficientFunds
		}

		updated, err := q.AdjustMemberBalances(ctx, sender.ID, 0, -amount.Amount)
		if err != nil {
			return err
		}
		if _, err := q.AdjustMemberBalances(ctx, recipient.ID, 0, amount.Amount); err != nil {
			return err
		}

		tx := &models.Transaction{
			ID:        uuid.New(),
			UserID:    in.UserID,
			ChamaID:   uuid.NullUUID{UUID: in.ChamaID, Valid: true},
			Reference: internalReference("SEND"),
			Purpose:   domain.PurposeWalletTransfer,
			Amount:    amount.Amount,
			Currency:  amount.Currency,
			Status:    domain.TxStatusSuccess,
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "chama_member", sender.ID.String(), &in.UserID,
			"wallet_send", "", "", nil); err != nil {
			return err
		}

		result = &WalletOpResult{
			Operation:      domain.WalletOpSend,
			SavingsBalance: updated.SavingsBalance,
			MGRBalance:     updated.MGRBalance,
			Fee:            domain.ComputeFee(domain.FeeTransfer, amount).Amount,
			Reference:      tx.Reference,
		}
		return nil
	})
	return result, err
}

// GetBalances returns the caller's membership balances.
func (s *WalletService) GetBalances(ctx context.Context, chamaID, userID uuid.UUID) (*models.ChamaMember, error) {
	member, err := s.store.Queries().GetMember(ctx, chamaID, userID)
	if err != nil {
		return nil, memberError(err)
	}
	return member, nil
}

func memberError(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotAMember
	}
	return err
}

func internalReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
