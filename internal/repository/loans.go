package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hanzara/chamapay-backend/internal/models"
)

const loanColumns = `id, chama_id, borrower_id, amount, interest_rate, duration_months,
	purpose, status, total_due, repaid_amount, approved_by, disbursed_at,
	created_at, updated_at`

func scanLoan(row pgx.Row) (*models.Loan, error) {
	l := &models.Loan{}
	err := row.Scan(
		&l.ID, &l.ChamaID, &l.BorrowerID, &l.Amount, &l.InterestRate, &l.DurationMonths,
		&l.Purpose, &l.Status, &l.TotalDue, &l.RepaidAmount, &l.ApprovedBy, &l.DisbursedAt,
		&l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan loan: %w", err)
	}
	return l, nil
}

func (q *Queries) CreateLoan(ctx context.Context, l *models.Loan) error {
	query := `
		INSERT INTO loans (id, chama_id, borrower_id, amount, interest_rate, duration_months,
			purpose, status, total_due, repaid_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query,
		l.ID, l.ChamaID, l.BorrowerID, l.Amount, l.InterestRate, l.DurationMonths,
		l.Purpose, l.Status, l.TotalDue, l.RepaidAmount).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func (q *Queries) GetLoanForUpdate(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	return scanLoan(q.db.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
}

func (q *Queries) ListLoansByChama(ctx context.Context, chamaID uuid.UUID) ([]models.Loan, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE chama_id = $1 ORDER BY created_at DESC`,
		chamaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

// MarkLoanActive records approval and disbursement in one step.
func (q *Queries) MarkLoanActive(ctx context.Context, id, approverID uuid.UUID, disbursedAt time.Time) (*models.Loan, error) {
	query := `
		UPDATE loans
		SET status = 'active', approved_by = $2, disbursed_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + loanColumns
	return scanLoan(q.db.QueryRow(ctx, query, id, approverID, disbursedAt))
}

func (q *Queries) MarkLoanRejected(ctx context.Context, id, approverID uuid.UUID) (*models.Loan, error) {
	query := `
		UPDATE loans
		SET status = 'rejected', approved_by = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + loanColumns
	return scanLoan(q.db.QueryRow(ctx, query, id, approverID))
}

// ApplyLoanRepayment adds to repaid_amount and completes the loan when the
// total due is covered.
func (q *Queries) ApplyLoanRepayment(ctx context.Context, id uuid.UUID, amount int64) (*models.Loan, error) {
	query := `
		UPDATE loans
		SET repaid_amount = repaid_amount + $2,
			status = CASE WHEN repaid_amount + $2 >= total_due THEN 'completed' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + loanColumns
	return scanLoan(q.db.QueryRow(ctx, query, id, amount))
}
