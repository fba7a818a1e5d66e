package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

func newLedger(db *repository.Store) *LedgerService {
	audit := NewAuditService(db)
	return NewLedgerService(db, audit)
}

func recordPendingTx(t *testing.T, store *repository.Store, ledger *LedgerService, tx *models.Transaction) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(q *repository.Queries) error {
		return ledger.RecordPending(context.Background(), q, tx)
	})
	require.NoError(t, err)
}

func TestFinalizeContributionSuccess(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	ctx := context.Background()

	user := createTestUser(t, db, "mary@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 0)

	tx := &models.Transaction{
		UserID:    user.ID,
		ChamaID:   uuid.NullUUID{UUID: chama.ID, Valid: true},
		Reference: "PSK-contrib-1",
		Purpose:   domain.PurposeContribution,
		Amount:    500_00,
	}
	recordPendingTx(t, store, ledger, tx)

	finalized, err := ledger.Finalize(ctx, tx.Reference, "success", FinalizeFields{
		Channel:         "mobile_money",
		GatewayResponse: "Approved",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, finalized.Status)

	updated, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), updated.SavingsBalance)
	assert.Equal(t, int64(0), updated.MGRBalance)

	chamaAfter, err := repository.New(db).GetChama(ctx, chama.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), chamaAfter.TotalSavings)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	ctx := context.Background()

	user := createTestUser(t, db, "john@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 0)

	tx := &models.Transaction{
		UserID:    user.ID,
		ChamaID:   uuid.NullUUID{UUID: chama.ID, Valid: true},
		Reference: "PSK-contrib-2",
		Purpose:   domain.PurposeContribution,
		Amount:    200_00,
	}
	recordPendingTx(t, store, ledger, tx)

	_, err := ledger.Finalize(ctx, tx.Reference, "success", FinalizeFields{})
	require.NoError(t, err)

	// Repeating the stored status is a no-op: balances move exactly once.
	again, err := ledger.Finalize(ctx, tx.Reference, "success", FinalizeFields{})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, again.Status)

	updated, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_00), updated.SavingsBalance)
}

func TestFinalizeConflictFirstWriterWins(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	ctx := context.Background()

	user := createTestUser(t, db, "grace@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 0)

	tx := &models.Transaction{
		UserID:    user.ID,
		ChamaID:   uuid.NullUUID{UUID: chama.ID, Valid: true},
		Reference: "PSK-contrib-3",
		Purpose:   domain.PurposeContribution,
		Amount:    300_00,
	}
	recordPendingTx(t, store, ledger, tx)

	_, err := ledger.Finalize(ctx, tx.Reference, "success", FinalizeFields{})
	require.NoError(t, err)

	// A later divergent report does not overwrite the stored status.
	conflicting, err := ledger.Finalize(ctx, tx.Reference, "failed", FinalizeFields{
		GatewayResponse: "Declined",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, conflicting.Status)

	updated, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), updated.SavingsBalance)
}

func TestFinalizeRegistrationActivatesChama(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer@example.com")
	chama := createTestChama(t, db, "available", 10_000_00)

	tx := &models.Transaction{
		UserID:    buyer.ID,
		ChamaID:   uuid.NullUUID{UUID: chama.ID, Valid: true},
		Reference: "PSK-reg-1",
		Purpose:   domain.PurposeRegistration,
		Amount:    10_000_00,
	}
	recordPendingTx(t, store, ledger, tx)

	_, err := ledger.Finalize(ctx, tx.Reference, "success", FinalizeFields{})
	require.NoError(t, err)

	chamaAfter, err := repository.New(db).GetChama(ctx, chama.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", chamaAfter.Status)
	assert.Equal(t, buyer.ID, chamaAfter.CreatedBy)
	assert.Equal(t, int32(1), chamaAfter.CurrentMembers)

	member, err := repository.New(db).GetMember(ctx, chama.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, member.Role)
}

func TestFinalizeFailedRegistrationLeavesChamaAvailable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	ctx := context.Background()

	buyer := createTestUser(t, db, "declined@example.com")
	chama := createTestChama(t, db, "available", 10_000_00)

	tx := &models.Transaction{
		UserID:    buyer.ID,
		ChamaID:   uuid.NullUUID{UUID: chama.ID, Valid: true},
		Reference: "PSK-reg-2",
		Purpose:   domain.PurposeRegistration,
		Amount:    10_000_00,
	}
	recordPendingTx(t, store, ledger, tx)

	finalized, err := ledger.Finalize(ctx, tx.Reference, "failed", FinalizeFields{
		GatewayResponse: "Insufficient funds",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, finalized.Status)

	chamaAfter, err := repository.New(db).GetChama(ctx, chama.ID)
	require.NoError(t, err)
	assert.Equal(t, "available", chamaAfter.Status)
	assert.Equal(t, int32(0), chamaAfter.CurrentMembers)

	_, err = repository.New(db).GetMember(ctx, chama.ID, buyer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFinalizeRejectsNonTerminalTarget(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)

	_, err := ledger.Finalize(context.Background(), "PSK-whatever", "pending", FinalizeFields{})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestFinalizeDefaultPurposeCreditsUserWallet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	ctx := context.Background()

	user := createTestUser(t, db, "saver@example.com")

	tx := &models.Transaction{
		UserID:    user.ID,
		Reference: "PSK-sav-1",
		Purpose:   domain.PurposePersonalSavings,
		Amount:    150_00,
	}
	recordPendingTx(t, store, ledger, tx)

	_, err := ledger.Finalize(ctx, tx.Reference, "success", FinalizeFields{})
	require.NoError(t, err)

	var balance int64
	err = db.QueryRow(ctx, "SELECT balance FROM user_wallets WHERE user_id = $1", user.ID).Scan(&balance)
	require.NoError(t, err)
	assert.Equal(t, int64(150_00), balance)
}
