package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/gateway"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

func newChamaService(store *repository.Store, gw gateway.Gateway) (*ChamaService, *LedgerService) {
	audit := NewAuditService(store)
	ledger := NewLedgerService(store, audit)
	payments := NewPaymentService(store, gw, ledger, "")
	return NewChamaService(store, payments, audit), ledger
}

func TestPurchaseThroughVerification(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	mock := gateway.NewMock()
	svc, ledger := newChamaService(store, mock)
	ctx := context.Background()

	buyer := createTestUser(t, db, "founder@example.com")
	chama := createTestChama(t, db, "available", 25_000_00)

	out, err := svc.Purchase(ctx, chama.ID, buyer.ID, buyer.Email)
	require.NoError(t, err)
	assert.True(t, mock.Initialized(out.Reference))

	// Still available until the payment settles.
	mid, err := repository.New(db).GetChama(ctx, chama.ID)
	require.NoError(t, err)
	assert.Equal(t, "available", mid.Status)

	_, err = ledger.Finalize(ctx, out.Reference, "success", FinalizeFields{})
	require.NoError(t, err)

	after, err := repository.New(db).GetChama(ctx, chama.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", after.Status)
	assert.Equal(t, buyer.ID, after.CreatedBy)

	member, err := repository.New(db).GetMember(ctx, chama.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, member.Role)
}

func TestPurchaseRejectsActiveChama(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, _ := newChamaService(store, gateway.NewMock())
	ctx := context.Background()

	buyer := createTestUser(t, db, "latecomer@example.com")
	chama := createTestChama(t, db, "active", 25_000_00)

	_, err := svc.Purchase(ctx, chama.ID, buyer.ID, buyer.Email)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestListMarketplaceOnlyAvailable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, _ := newChamaService(store, gateway.NewMock())
	ctx := context.Background()

	available := createTestChama(t, db, "available", 10_000_00)
	createTestChama(t, db, "active", 10_000_00)

	chamas, err := svc.ListMarketplace(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, chamas, 1)
	assert.Equal(t, available.ID, chamas[0].ID)
}

func TestSetWithdrawalLockAdminOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, _ := newChamaService(store, gateway.NewMock())
	ctx := context.Background()

	admin := createTestUser(t, db, "boss@example.com")
	target := createTestUser(t, db, "target@example.com")
	peer := createTestUser(t, db, "bystander@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, admin.ID, domain.RoleAdmin, 0, 0)
	targetMember := createTestMember(t, db, chama.ID, target.ID, "member", 0, 0)
	createTestMember(t, db, chama.ID, peer.ID, "member", 0, 0)

	err := svc.SetWithdrawalLock(ctx, chama.ID, targetMember.ID, peer.ID, true)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, svc.SetWithdrawalLock(ctx, chama.ID, targetMember.ID, admin.ID, true))

	locked, err := repository.New(db).GetMemberByID(ctx, targetMember.ID)
	require.NoError(t, err)
	assert.True(t, locked.WithdrawalLocked)

	require.NoError(t, svc.SetWithdrawalLock(ctx, chama.ID, targetMember.ID, admin.ID, false))
	unlocked, err := repository.New(db).GetMemberByID(ctx, targetMember.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.WithdrawalLocked)
}

func TestUpdateSettings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc, _ := newChamaService(store, gateway.NewMock())
	ctx := context.Background()

	admin := createTestUser(t, db, "org@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, admin.ID, domain.RoleAdmin, 0, 0)

	updated, err := svc.UpdateSettings(ctx, chama.ID, admin.ID, decimal.NewFromInt(250), "weekly", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(250_00), updated.ContributionAmount)
	assert.Equal(t, "weekly", updated.ContributionFrequency)
	assert.Equal(t, int32(20), updated.MaxMembers)
}
