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

// DefaultLoanInterestRate is the flat annual rate applied to member loans.
const DefaultLoanInterestRate = 10.0

// LoanService manages member loans: application, admin approval with
// disbursement to the borrower's MGR wallet, rejection, and repayment.
type LoanService struct {
	store QueryStore
	audit *AuditService
}

func NewLoanService(store QueryStore, audit *AuditService) *LoanService {
	return &LoanService{store: store, audit: audit}
}

// flatInterest computes principal * rate/100 * months/12, rounded to cents.
func flatInterest(principal int64, rate float64, months int32) int64 {
	p := decimal.NewFromInt(principal)
	r := decimal.NewFromFloat(rate).Div(decimal.NewFromInt(100))
	t := decimal.NewFromInt32(months).Div(decimal.NewFromInt(12))
	return p.Mul(r).Mul(t).Round(0).IntPart()
}

// Apply files a loan application against the chama.
func (s *LoanService) Apply(ctx context.Context, chamaID, borrowerID uuid.UUID, amount decimal.Decimal, durationMonths int32, purpose string) (*models.Loan, error) {
	money := domain.FromShillings(amount)
	if !money.IsPositive() || durationMonths <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var loan *models.Loan
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if _, err := q.GetMember(ctx, chamaID, borrowerID); err != nil {
			return memberError(err)
		}

		interest := flatInterest(money.Amount, DefaultLoanInterestRate, durationMonths)
		loan = &models.Loan{
			ID:             uuid.New(),
			ChamaID:        chamaID,
			BorrowerID:     borrowerID,
			Amount:         money.Amount,
			InterestRate:   DefaultLoanInterestRate,
			DurationMonths: durationMonths,
			Purpose:        purpose,
			Status:         domain.LoanStatusPending,
			TotalDue:       money.Amount + interest,
		}
		if err := q.CreateLoan(ctx, loan); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, "loan", loan.ID.String(), &borrowerID,
			"apply", "", domain.LoanStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// List returns the chama's loans, newest first. Members only.
func (s *LoanService) List(ctx context.Context, chamaID, callerID uuid.UUID) ([]models.Loan, error) {
	q := s.store.Queries()
	if _, err := q.GetMember(ctx, chamaID, callerID); err != nil {
		return nil, memberError(err)
	}
	return q.ListLoansByChama(ctx, chamaID)
}

// Approve disburses the principal to the borrower's MGR wallet and activates
// the loan. Admin only.
func (s *LoanService) Approve(ctx context.Context, loanID, approverID uuid.UUID) (*models.Loan, error) {
	var approved *models.Loan
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		loan, err := q.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if err := requireRole(ctx, q, loan.ChamaID, approverID, domain.RoleAdmin); err != nil {
			return err
		}
		if loan.Status != domain.LoanStatusPending {
			return models.ErrInvalidTransition
		}

		borrower, err := q.GetMember(ctx, loan.ChamaID, loan.BorrowerID)
		if err != nil {
			return memberError(err)
		}
		if _, err := q.AdjustMemberBalances(ctx, borrower.ID, 0, loan.Amount); err != nil {
			return err
		}

		updated, err := q.MarkLoanActive(ctx, loanID, approverID, time.Now().UTC())
		if err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]int64{"disbursed": loan.Amount})
		if err := s.audit.Write(ctx, q, "loan", loanID.String(), &approverID,
			"approve", domain.LoanStatusPending, domain.LoanStatusActive, meta); err != nil {
			return err
		}
		approved = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject declines a pending loan. Admin only.
func (s *LoanService) Reject(ctx context.Context, loanID, approverID uuid.UUID) (*models.Loan, error) {
	var rejected *models.Loan
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		loan, err := q.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if err := requireRole(ctx, q, loan.ChamaID, approverID, domain.RoleAdmin); err != nil {
			return err
		}
		if loan.Status != domain.LoanStatusPending {
			return models.ErrInvalidTransition
		}

		updated, err := q.MarkLoanRejected(ctx, loanID, approverID)
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, "loan", loanID.String(), &approverID,
			"reject", domain.LoanStatusPending, domain.LoanStatusRejected, nil); err != nil {
			return err
		}
		rejected = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Repay moves money from the borrower's MGR wallet against the outstanding
// balance, completing the loan when the total due is covered.
func (s *LoanService) Repay(ctx context.Context, loanID, borrowerID uuid.UUID, amount decimal.Decimal) (*models.Loan, error) {
	money := domain.FromShillings(amount)
	if !money.IsPositive() {
		return nil, models.ErrInvalidAmount
	}

	var repaid *models.Loan
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		loan, err := q.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.BorrowerID != borrowerID {
			return models.ErrForbidden
		}
		if loan.Status != domain.LoanStatusActive {
			return models.ErrInvalidTransition
		}

		outstanding := loan.TotalDue - loan.RepaidAmount
		if money.Amount > outstanding {
			money.Amount = outstanding
		}

		member, err := q.GetMember(ctx, loan.ChamaID, borrowerID)
		if err != nil {
			return memberError(err)
		}
		locked, err := q.GetMemberForUpdate(ctx, member.ID)
		if err != nil {
			return err
		}
		if locked.MGRBalance < money.Amount {
			return models.ErrInsufficientFunds
		}
		if _, err := q.AdjustMemberBalances(ctx, member.ID, 0, -money.Amount); err != nil {
			return err
		}

		updated, err := q.ApplyLoanRepayment(ctx, loanID, money.Amount)
		if err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]int64{"amount": money.Amount})
		if err := s.audit.Write(ctx, q, "loan", loanID.String(), &borrowerID,
			"repay", loan.Status, updated.Status, meta); err != nil {
			return err
		}
		repaid = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repaid, nil
}
