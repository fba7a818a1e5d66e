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

const contributionColumns = `id, chama_id, member_id, amount, payment_method, status,
	verified_by, verified_at, created_at`

func scanContribution(row pgx.Row) (*models.Contribution, error) {
	c := &models.Contribution{}
	err := row.Scan(
		&c.ID, &c.ChamaID, &c.MemberID, &c.Amount, &c.PaymentMethod, &c.Status,
		&c.VerifiedBy, &c.VerifiedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contribution: %w", err)
	}
	return c, nil
}

func (q *Queries) CreateContribution(ctx context.Context, c *models.Contribution) error {
	query := `
		INSERT INTO contributions (id, chama_id, member_id, amount, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`
	err := q.db.QueryRow(ctx, query,
		c.ID, c.ChamaID, c.MemberID, c.Amount, c.PaymentMethod, c.Status).
		Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

func (q *Queries) GetContributionForUpdate(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	return scanContribution(q.db.QueryRow(ctx,
		`SELECT `+contributionColumns+` FROM contributions WHERE id = $1 FOR UPDATE`, id))
}

func (q *Queries) ListPendingContributions(ctx context.Context, chamaID uuid.UUID) ([]models.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE chama_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`
	rows, err := q.db.Query(ctx, query, chamaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending contributions: %w", err)
	}
	defer rows.Close()

	var contributions []models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, *c)
	}
	return contributions, rows.Err()
}

// MarkContributionVerified records the verifier. Only pending rows move.
func (q *Queries) MarkContributionVerified(ctx context.Context, id, verifierID uuid.UUID, at time.Time) (*models.Contribution, error) {
	query := `
		UPDATE contributions
		SET status = 'verified', verified_by = $2, verified_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + contributionColumns
	c, err := scanContribution(q.db.QueryRow(ctx, query, id, verifierID, at))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidTransition
	}
	return c, err
}
