package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

func TestAddSavingsAccumulates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewSavingsService(store, NewAuditService(store))
	ctx := context.Background()

	user := createTestUser(t, db, "goalgetter@example.com")

	goal, err := svc.AddSavings(ctx, user.ID, "Emergency Fund", decimal.NewFromInt(10_000), decimal.NewFromInt(500), "monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), goal.CurrentAmount)
	assert.Equal(t, int64(10_000_00), goal.TargetAmount)

	// Same goal name accumulates rather than duplicating.
	goal, err = svc.AddSavings(ctx, user.ID, "Emergency Fund", decimal.NewFromInt(10_000), decimal.NewFromInt(300), "monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(800_00), goal.CurrentAmount)

	goals, err := svc.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)

	var balance int64
	require.NoError(t, db.QueryRow(ctx, "SELECT balance FROM user_wallets WHERE user_id = $1", user.ID).Scan(&balance))
	assert.Equal(t, int64(800_00), balance)
}

func TestAddSavingsValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewSavingsService(store, NewAuditService(store))
	ctx := context.Background()

	user := createTestUser(t, db, "novice@example.com")

	_, err := svc.AddSavings(ctx, user.ID, "", decimal.NewFromInt(100), decimal.NewFromInt(100), "monthly")
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.AddSavings(ctx, user.ID, "Car", decimal.NewFromInt(100), decimal.Zero, "monthly")
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}
