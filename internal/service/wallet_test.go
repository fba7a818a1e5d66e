package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

func newWalletService(store *repository.Store) (*WalletService, *LedgerService) {
	audit := NewAuditService(store)
	ledger := NewLedgerService(store, audit)
	return NewWalletService(store, ledger, audit), ledger
}

func TestDispatchRejectsNonPositiveAmount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))

	for _, amount := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-10),
	} {
		_, err := svc.Dispatch(context.Background(), WalletOpInput{
			ChamaID:   uuid.New(),
			UserID:    uuid.New(),
			Operation: domain.WalletOpTopup,
			Amount:    amount,
		})
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	}
}

func TestDispatchRejectsUnknownOperation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))

	_, err := svc.Dispatch(context.Background(), WalletOpInput{
		ChamaID:   uuid.New(),
		UserID:    uuid.New(),
		Operation: "transmogrify",
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestTopupMovesSavingsToMGR(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, _ := newWalletService(store)
	ctx := context.Background()

	user := createTestUser(t, db, "topup@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, user.ID, "member", 1_000_00, 0)

	result, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpTopup,
		Amount:    decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(600_00), result.SavingsBalance)
	assert.Equal(t, int64(400_00), result.MGRBalance)
	assert.Equal(t, int64(0), result.Fee)
	assert.Contains(t, result.Reference, "TOPUP-")

	tx, err := repository.New(db).GetTransactionByReference(ctx, result.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, tx.Status)
	assert.Equal(t, domain.PurposeWalletTopup, tx.Purpose)
}

func TestTopupInsufficientSavings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	user := createTestUser(t, db, "broke@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 100_00, 0)

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpTopup,
		Amount:    decimal.NewFromInt(200),
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Failed dispatch leaves balances untouched.
	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_00), after.SavingsBalance)
	assert.Equal(t, int64(0), after.MGRBalance)
}

func TestWithdrawInsufficientMGR(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	user := createTestUser(t, db, "overdraw@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 300_00)

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpWithdraw,
		Amount:    decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	// No hold is taken and no ledger row is written.
	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), after.MGRBalance)

	var count int
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSendInsufficientMGR(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	sender := createTestUser(t, db, "shortsender@example.com")
	recipient := createTestUser(t, db, "shortrecipient@example.com")
	chama := createTestChama(t, db, "active", 0)
	senderMember := createTestMember(t, db, chama.ID, sender.ID, "member", 0, 300_00)
	recipientMember := createTestMember(t, db, chama.ID, recipient.ID, "member", 0, 100_00)

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:           chama.ID,
		UserID:            sender.ID,
		Operation:         domain.WalletOpSend,
		Amount:            decimal.NewFromInt(500),
		RecipientMemberID: uuid.NullUUID{UUID: recipientMember.ID, Valid: true},
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	afterSender, err := repository.New(db).GetMemberByID(ctx, senderMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), afterSender.MGRBalance)

	afterRecipient, err := repository.New(db).GetMemberByID(ctx, recipientMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_00), afterRecipient.MGRBalance)
}

func TestWithdrawBlockedWhenLocked(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	user := createTestUser(t, db, "frozen@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 500_00)
	require.NoError(t, repository.New(db).SetWithdrawalLock(ctx, member.ID, true))

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpWithdraw,
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, models.ErrWalletLocked)
}

func TestWithdrawDebitsMGRAndRefundsOnFailure(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, ledger := newWalletService(store)
	ctx := context.Background()

	user := createTestUser(t, db, "payout@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 800_00)

	result, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:       chama.ID,
		UserID:        user.ID,
		Operation:     domain.WalletOpWithdraw,
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: "mobile_money",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), result.MGRBalance)
	assert.Contains(t, result.Reference, "WD-")

	// The hold is taken immediately; the ledger row stays pending.
	tx, err := repository.New(db).GetTransactionByReference(ctx, result.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	assert.Equal(t, domain.PurposeWithdrawal, tx.Purpose)

	// A failed payout releases the hold.
	_, err = ledger.Finalize(ctx, result.Reference, "failed", FinalizeFields{
		GatewayResponse: "Transfer failed",
	})
	require.NoError(t, err)

	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800_00), after.MGRBalance)
}

func TestWithdrawSuccessKeepsDebit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, ledger := newWalletService(store)
	ctx := context.Background()

	user := createTestUser(t, db, "settled@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 800_00)

	result, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpWithdraw,
		Amount:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	_, err = ledger.Finalize(ctx, result.Reference, "success", FinalizeFields{})
	require.NoError(t, err)

	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), after.MGRBalance)
}

func TestSendMovesMGRBetweenMembers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	sender := createTestUser(t, db, "sender@example.com")
	recipient := createTestUser(t, db, "recipient@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, sender.ID, "member", 0, 500_00)
	recipientMember := createTestMember(t, db, chama.ID, recipient.ID, "member", 0, 100_00)

	result, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:           chama.ID,
		UserID:            sender.ID,
		Operation:         domain.WalletOpSend,
		Amount:            decimal.NewFromInt(200),
		RecipientMemberID: uuid.NullUUID{UUID: recipientMember.ID, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), result.MGRBalance)

	after, err := repository.New(db).GetMemberByID(ctx, recipientMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), after.MGRBalance)
}

func TestSendToSelfRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	user := createTestUser(t, db, "narcissist@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 500_00)

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:           chama.ID,
		UserID:            user.ID,
		Operation:         domain.WalletOpSend,
		Amount:            decimal.NewFromInt(100),
		RecipientMemberID: uuid.NullUUID{UUID: member.ID, Valid: true},
	})
	assert.ErrorIs(t, err, models.ErrSelfTransfer)
}

func TestSendOutsideChamaRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	sender := createTestUser(t, db, "insider@example.com")
	outsider := createTestUser(t, db, "outsider@example.com")
	chama := createTestChama(t, db, "active", 0)
	otherChama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, sender.ID, "member", 0, 500_00)
	outsiderMember := createTestMember(t, db, otherChama.ID, outsider.ID, "member", 0, 0)

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:           chama.ID,
		UserID:            sender.ID,
		Operation:         domain.WalletOpSend,
		Amount:            decimal.NewFromInt(100),
		RecipientMemberID: uuid.NullUUID{UUID: outsiderMember.ID, Valid: true},
	})
	assert.ErrorIs(t, err, models.ErrNotAMember)
}

func TestDispatchNonMember(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newWalletService(repository.NewStore(db))
	ctx := context.Background()

	user := createTestUser(t, db, "stranger@example.com")
	chama := createTestChama(t, db, "active", 0)

	_, err := svc.Dispatch(ctx, WalletOpInput{
		ChamaID:   chama.ID,
		UserID:    user.ID,
		Operation: domain.WalletOpTopup,
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, models.ErrNotAMember)
}
