package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

func newLoanService(db *repository.Store) *LoanService {
	return NewLoanService(db, NewAuditService(db))
}

func TestFlatInterest(t *testing.T) {
	// 100,000 cents at 10% for 12 months = 10,000 cents.
	assert.Equal(t, int64(10_000), flatInterest(100_000, 10.0, 12))
	// Half a year halves the interest.
	assert.Equal(t, int64(5_000), flatInterest(100_000, 10.0, 6))
	assert.Equal(t, int64(0), flatInterest(0, 10.0, 12))
}

func TestLoanApplyComputesTotalDue(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	borrower := createTestUser(t, db, "borrower@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, borrower.ID, "member", 0, 0)

	loan, err := svc.Apply(ctx, chama.ID, borrower.ID, decimal.NewFromInt(1000), 12, "school fees")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	assert.Equal(t, int64(1000_00), loan.Amount)
	// 10% flat over 12 months.
	assert.Equal(t, int64(1100_00), loan.TotalDue)
}

func TestLoanApplyRequiresMembership(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	outsider := createTestUser(t, db, "nonmember@example.com")
	chama := createTestChama(t, db, "active", 0)

	_, err := svc.Apply(ctx, chama.ID, outsider.ID, decimal.NewFromInt(1000), 12, "")
	assert.ErrorIs(t, err, models.ErrNotAMember)
}

func TestLoanApproveDisbursesToMGR(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	admin := createTestUser(t, db, "chair@example.com")
	borrower := createTestUser(t, db, "member@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, admin.ID, domain.RoleAdmin, 0, 0)
	borrowerMember := createTestMember(t, db, chama.ID, borrower.ID, "member", 0, 0)

	loan, err := svc.Apply(ctx, chama.ID, borrower.ID, decimal.NewFromInt(500), 6, "stock")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, loan.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, approved.Status)
	require.NotNil(t, approved.DisbursedAt)
	assert.Equal(t, admin.ID, approved.ApprovedBy.UUID)

	after, err := repository.New(db).GetMemberByID(ctx, borrowerMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), after.MGRBalance)
}

func TestLoanApproveRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	peer := createTestUser(t, db, "peer@example.com")
	borrower := createTestUser(t, db, "member2@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, peer.ID, "member", 0, 0)
	createTestMember(t, db, chama.ID, borrower.ID, "member", 0, 0)

	loan, err := svc.Apply(ctx, chama.ID, borrower.ID, decimal.NewFromInt(500), 6, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, loan.ID, peer.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestLoanApproveOnlyPending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	admin := createTestUser(t, db, "chair2@example.com")
	borrower := createTestUser(t, db, "member3@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, admin.ID, domain.RoleAdmin, 0, 0)
	createTestMember(t, db, chama.ID, borrower.ID, "member", 0, 0)

	loan, err := svc.Apply(ctx, chama.ID, borrower.ID, decimal.NewFromInt(500), 6, "")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, loan.ID, admin.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, loan.ID, admin.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestLoanRepayClampsAndCompletes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	admin := createTestUser(t, db, "chair3@example.com")
	borrower := createTestUser(t, db, "member4@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, admin.ID, domain.RoleAdmin, 0, 0)
	borrowerMember := createTestMember(t, db, chama.ID, borrower.ID, "member", 0, 2000_00)

	loan, err := svc.Apply(ctx, chama.ID, borrower.ID, decimal.NewFromInt(1000), 12, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, loan.ID, admin.ID)
	require.NoError(t, err)

	// Overpaying clamps to the outstanding amount (1100 due).
	repaid, err := svc.Repay(ctx, loan.ID, borrower.ID, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, repaid.Status)
	assert.Equal(t, repaid.TotalDue, repaid.RepaidAmount)

	// Disbursed 1000, repaid 1100: net -100 from the seeded 2000.
	after, err := repository.New(db).GetMemberByID(ctx, borrowerMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1900_00), after.MGRBalance)
}

func TestLoanRepayBorrowerOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newLoanService(repository.NewStore(db))
	ctx := context.Background()

	admin := createTestUser(t, db, "chair4@example.com")
	borrower := createTestUser(t, db, "member5@example.com")
	other := createTestUser(t, db, "member6@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, admin.ID, domain.RoleAdmin, 0, 0)
	createTestMember(t, db, chama.ID, borrower.ID, "member", 0, 0)
	createTestMember(t, db, chama.ID, other.ID, "member", 0, 1000_00)

	loan, err := svc.Apply(ctx, chama.ID, borrower.ID, decimal.NewFromInt(500), 6, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, loan.ID, admin.ID)
	require.NoError(t, err)

	_, err = svc.Repay(ctx, loan.ID, other.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, models.ErrForbidden)
}
