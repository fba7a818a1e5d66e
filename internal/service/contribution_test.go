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

func newContributionService(db *repository.Store) *ContributionService {
	return NewContributionService(db, NewAuditService(db))
}

func TestContributionRecordAndVerify(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newContributionService(repository.NewStore(db))
	ctx := context.Background()

	treasurer := createTestUser(t, db, "treasurer@example.com")
	contributor := createTestUser(t, db, "contributor@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, treasurer.ID, domain.RoleTreasurer, 0, 0)
	contributorMember := createTestMember(t, db, chama.ID, contributor.ID, "member", 0, 0)

	contribution, err := svc.Record(ctx, chama.ID, contributor.ID, decimal.NewFromInt(300), "mobile_money")
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionStatusPending, contribution.Status)

	// Nothing moves until verification.
	before, err := repository.New(db).GetMemberByID(ctx, contributorMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), before.SavingsBalance)

	pending, err := svc.ListPending(ctx, chama.ID, treasurer.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	verified, err := svc.Verify(ctx, chama.ID, contribution.ID, treasurer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContributionStatusVerified, verified.Status)
	assert.Equal(t, treasurer.ID, verified.VerifiedBy.UUID)
	require.NotNil(t, verified.VerifiedAt)

	after, err := repository.New(db).GetMemberByID(ctx, contributorMember.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), after.SavingsBalance)

	chamaAfter, err := repository.New(db).GetChama(ctx, chama.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), chamaAfter.TotalSavings)
}

func TestContributionVerifyIsNotRepeatable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newContributionService(repository.NewStore(db))
	ctx := context.Background()

	treasurer := createTestUser(t, db, "treasurer2@example.com")
	contributor := createTestUser(t, db, "contributor2@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, treasurer.ID, domain.RoleTreasurer, 0, 0)
	member := createTestMember(t, db, chama.ID, contributor.ID, "member", 0, 0)

	contribution, err := svc.Record(ctx, chama.ID, contributor.ID, decimal.NewFromInt(300), "")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, chama.ID, contribution.ID, treasurer.ID)
	require.NoError(t, err)

	// Re-verifying must not double-credit.
	_, err = svc.Verify(ctx, chama.ID, contribution.ID, treasurer.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), after.SavingsBalance)
}

func TestContributionVerifyRequiresTreasurer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newContributionService(repository.NewStore(db))
	ctx := context.Background()

	plain := createTestUser(t, db, "plain@example.com")
	contributor := createTestUser(t, db, "contributor3@example.com")
	chama := createTestChama(t, db, "active", 0)
	createTestMember(t, db, chama.ID, plain.ID, "member", 0, 0)
	createTestMember(t, db, chama.ID, contributor.ID, "member", 0, 0)

	contribution, err := svc.Record(ctx, chama.ID, contributor.ID, decimal.NewFromInt(300), "")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, chama.ID, contribution.ID, plain.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.ListPending(ctx, chama.ID, plain.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}
