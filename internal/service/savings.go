package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// SavingsService manages personal savings goals outside any chama.
type SavingsService struct {
	store QueryStore
	audit *AuditService
}

func NewSavingsService(store QueryStore, audit *AuditService) *SavingsService {
	return &SavingsService{store: store, audit: audit}
}

// AddSavings upserts the goal, credits the personal wallet, and records a
// savings transaction, all in one transaction.
func (s *SavingsService) AddSavings(ctx context.Context, userID uuid.UUID, goalName string, target, amount decimal.Decimal, frequency string) (*models.SavingsGoal, error) {
	money := domain.FromShillings(amount)
	if !money.IsPositive() || goalName == "" {
		return nil, models.ErrInvalidAmount
	}
	targetMoney := domain.FromShillings(target)
	if frequency == "" {
		frequency = "monthly"
	}

	var goal *models.SavingsGoal
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		g, err := q.UpsertSavingsGoal(ctx, userID, goalName, targetMoney.Amount, money.Amount, frequency)
		if err != nil {
			return err
		}
		if _, err := q.EnsureUserWallet(ctx, userID); err != nil {
			return err
		}
		if _, err := q.CreditUserWallet(ctx, userID, money.Amount); err != nil {
			return err
		}

		tx := &models.Transaction{
			ID:        uuid.New(),
			UserID:    userID,
			Reference: internalReference("SAV"),
			Purpose:   domain.PurposePersonalSavings,
			Amount:    money.Amount,
			Currency:  money.Currency,
			Status:    domain.TxStatusSuccess,
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "savings_goal", g.ID.String(), &userID,
			"add_savings", "", "", nil); err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// ListGoals returns the user's savings goals.
func (s *SavingsService) ListGoals(ctx context.Context, userID uuid.UUID) ([]models.SavingsGoal, error) {
	return s.store.Queries().ListSavingsGoals(ctx, userID)
}
