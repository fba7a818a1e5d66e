package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/gateway"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

func newPayoutService(store *repository.Store, gw gateway.Gateway) (*PayoutService, *WalletService) {
	audit := NewAuditService(store)
	ledger := NewLedgerService(store, audit)
	return NewPayoutService(store, gw, ledger), NewWalletService(store, ledger, audit)
}

func TestPayoutSettlesWithdrawal(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	mock := gateway.NewMock()
	payouts, wallets := newPayoutService(store, mock)
	ctx := context.Background()

	user := createTestUser(t, db, "payee@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 800_00)

	result, err := wallets.Dispatch(ctx, WalletOpInput{
		ChamaID:       chama.ID,
		UserID:        user.ID,
		Operation:     domain.WalletOpWithdraw,
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: "mobile_money",
	})
	require.NoError(t, err)

	processed, err := payouts.ProcessPendingWithdrawals(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, mock.PayoutCount())

	// The hold taken at dispatch becomes the final debit.
	tx, err := repository.New(db).GetTransactionByReference(ctx, result.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, tx.Status)
	assert.Equal(t, "mobile_money", tx.Channel)
	assert.Contains(t, tx.ResultCode, "TRF-")
	assert.NotNil(t, tx.PaidAt)

	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), after.MGRBalance)
}

func TestPayoutRejectionReleasesHold(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	mock := gateway.NewMock()
	payouts, wallets := newPayoutService(store, mock)
	ctx := context.Background()

	user := createTestUser(t, db, "bounced@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 800_00)

	result, err := wallets.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpWithdraw,
		Amount:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	mock.PayoutErr = &gateway.RejectedError{Message: "Recipient account unreachable"}
	processed, err := payouts.ProcessPendingWithdrawals(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	tx, err := repository.New(db).GetTransactionByReference(ctx, result.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, tx.Status)
	assert.Contains(t, tx.GatewayResponse, "Recipient account unreachable")

	// The declined transfer puts the money back.
	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800_00), after.MGRBalance)
}

func TestPayoutStopsOnGatewayOutage(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	mock := gateway.NewMock()
	payouts, wallets := newPayoutService(store, mock)
	ctx := context.Background()

	user := createTestUser(t, db, "waiting@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 800_00)

	result, err := wallets.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpWithdraw,
		Amount:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	mock.PayoutErr = gateway.ErrUnavailable
	processed, err := payouts.ProcessPendingWithdrawals(ctx, 10)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, 0, processed)

	// The row stays pending and the hold stays in place for the retry.
	tx, err := repository.New(db).GetTransactionByReference(ctx, result.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)

	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), after.MGRBalance)
}

func TestPayoutIgnoresOtherPendingRows(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	mock := gateway.NewMock()
	payouts, _ := newPayoutService(store, mock)
	paymentSvc, _ := newPaymentService(store, mock)
	ctx := context.Background()

	user := createTestUser(t, db, "checkoutonly@example.com")

	out, err := paymentSvc.Initialize(ctx, InitializeInput{
		UserID:  user.ID,
		Email:   user.Email,
		Amount:  decimal.NewFromInt(100),
		Purpose: domain.PurposePersonalSavings,
	})
	require.NoError(t, err)

	processed, err := payouts.ProcessPendingWithdrawals(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 0, mock.PayoutCount())

	tx, err := repository.New(db).GetTransactionByReference(ctx, out.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
}
