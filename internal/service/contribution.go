package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// ContributionService records member contributions and their treasurer
// verification. Savings balances move only on verification.
type ContributionService struct {
	store QueryStore
	audit *AuditService
}

func NewContributionService(store QueryStore, audit *AuditService) *ContributionService {
	return &ContributionService{store: store, audit: audit}
}

// Record stores a pending contribution for the calling member.
func (s *ContributionService) Record(ctx context.Context, chamaID, userID uuid.UUID, amount decimal.Decimal, paymentMethod string) (*models.Contribution, error) {
	money := domain.FromShillings(amount)
	if !money.IsPositive() {
		return nil, models.ErrInvalidAmount
	}
	if paymentMethod == "" {
		paymentMethod = "mobile_money"
	}

	var contribution *models.Contribution
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		member, err := q.GetMember(ctx, chamaID, userID)
		if err != nil {
			return memberError(err)
		}
		contribution = &models.Contribution{
			ID:            uuid.New(),
			ChamaID:       chamaID,
			MemberID:      member.ID,
			Amount:        money.Amount,
			PaymentMethod: paymentMethod,
			Status:        domain.ContributionStatusPending,
		}
		if err := q.CreateContribution(ctx, contribution); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, "contribution", contribution.ID.String(), &userID,
			"record", "", domain.ContributionStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

// ListPending returns unverified contributions. Treasurer or admin only.
func (s *ContributionService) ListPending(ctx context.Context, chamaID, callerID uuid.UUID) ([]models.Contribution, error) {
	q := s.store.Queries()
	if err := requireRole(ctx, q, chamaID, callerID, domain.RoleTreasurer); err != nil {
		return nil, err
	}
	return q.ListPendingContributions(ctx, chamaID)
}

// Verify confirms a pending contribution, crediting the member's savings
// balance and the chama's running total.
func (s *ContributionService) Verify(ctx context.Context, chamaID, contributionID, verifierID uuid.UUID) (*models.Contribution, error) {
	var verified *models.Contribution
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if err := requireRole(ctx, q, chamaID, verifierID, domain.RoleTreasurer); err != nil {
			return err
		}

		contribution, err := q.GetContributionForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}
		if contribution.ChamaID != chamaID {
			return models.ErrNotFound
		}

		updated, err := q.MarkContributionVerified(ctx, contributionID, verifierID, time.Now().UTC())
		if err != nil {
			return err
		}
		if _, err := q.AdjustMemberBalances(ctx, contribution.MemberID, contribution.Amount, 0); err != nil {
			return err
		}
		if err := q.AddChamaSavings(ctx, chamaID, contribution.Amount); err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]int64{"amount": contribution.Amount})
		if err := s.audit.Write(ctx, q, "contribution", contributionID.String(), &verifierID,
			"verify", domain.ContributionStatusPending, domain.ContributionStatusVerified, meta); err != nil {
			return err
		}
		verified = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}
