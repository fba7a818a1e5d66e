package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// ChamaService covers the marketplace and group administration.
type ChamaService struct {
	store    QueryStore
	payments *PaymentService
	audit    *AuditService
}

func NewChamaService(store QueryStore, payments *PaymentService, audit *AuditService) *ChamaService {
	return &ChamaService{store: store, payments: payments, audit: audit}
}

// ListMarketplace returns purchasable chamas.
func (s *ChamaService) ListMarketplace(ctx context.Context, limit, offset int32) ([]models.Chama, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.Queries().ListMarketplaceChamas(ctx, limit, offset)
}

// Purchase starts the registration payment for a marketplace chama. The
// chama is activated and the buyer joins as admin only when the payment
// finalizes as success.
func (s *ChamaService) Purchase(ctx context.Context, chamaID, userID uuid.UUID, email string) (*InitializeOutput, error) {
	chama, err := s.store.Queries().GetChama(ctx, chamaID)
	if err != nil {
		return nil, err
	}
	if chama.Status != "available" {
		return nil, fmt.Errorf("%w: chama is not purchasable", models.ErrInvalidTransition)
	}
	if chama.PurchasePrice <= 0 {
		return nil, models.ErrInvalidAmount
	}

	price := domain.NewMoney(chama.PurchasePrice, domain.CurrencyKES)
	return s.payments.Initialize(ctx, InitializeInput{
		UserID:  userID,
		Email:   email,
		Amount:  price.ToDecimal(),
		Purpose: domain.PurposeRegistration,
		ChamaID: uuid.NullUUID{UUID: chamaID, Valid: true},
		Metadata: map[string]any{
			"chama_name": chama.Name,
		},
	})
}

// GetChama returns a single chama.
func (s *ChamaService) GetChama(ctx context.Context, id uuid.UUID) (*models.Chama, error) {
	return s.store.Queries().GetChama(ctx, id)
}

// ListMembers returns the member roster. Callers must themselves be members.
func (s *ChamaService) ListMembers(ctx context.Context, chamaID, callerID uuid.UUID) ([]models.ChamaMember, error) {
	if _, err := s.store.Queries().GetMember(ctx, chamaID, callerID); err != nil {
		return nil, memberError(err)
	}
	return s.store.Queries().ListMembers(ctx, chamaID)
}

// SetWithdrawalLock lets an admin freeze or unfreeze a member's MGR wallet.
func (s *ChamaService) SetWithdrawalLock(ctx context.Context, chamaID, memberID, actorID uuid.UUID, locked bool) error {
	return s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if err := requireRole(ctx, q, chamaID, actorID, domain.RoleAdmin); err != nil {
			return err
		}
		member, err := q.GetMemberByID(ctx, memberID)
		if err != nil {
			return err
		}
		if member.ChamaID != chamaID {
			return models.ErrNotAMember
		}
		if err := q.SetWithdrawalLock(ctx, memberID, locked); err != nil {
			return err
		}
		action := "wallet_lock"
		if !locked {
			action = "wallet_unlock"
		}
		return s.audit.Write(ctx, q, "chama_member", memberID.String(), &actorID,
			action, "", "", nil)
	})
}

// UpdateSettings lets an admin change contribution terms and member limits.
func (s *ChamaService) UpdateSettings(ctx context.Context, chamaID, actorID uuid.UUID, contributionAmount decimal.Decimal, frequency string, maxMembers int32) (*models.Chama, error) {
	amount := domain.FromShillings(contributionAmount)
	if amount.Amount < 0 || maxMembers <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var updated *models.Chama
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if err := requireRole(ctx, q, chamaID, actorID, domain.RoleAdmin); err != nil {
			return err
		}
		chama, err := q.UpdateChamaSettings(ctx, chamaID, amount.Amount, frequency, maxMembers)
		if err != nil {
			return err
		}
		updated = chama
		return s.audit.Write(ctx, q, "chama", chamaID.String(), &actorID,
			"update_settings", "", "", nil)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// requireRole checks the actor holds the given role (or admin) in the chama.
func requireRole(ctx context.Context, q *repository.Queries, chamaID, userID uuid.UUID, role string) error {
	member, err := q.GetMember(ctx, chamaID, userID)
	if err != nil {
		return memberError(err)
	}
	if member.Role == role || member.Role == domain.RoleAdmin {
		return nil
	}
	return models.ErrForbidden
}
