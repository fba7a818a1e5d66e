package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hanzara/chamapay-backend/internal/models"
)

const chamaColumns = `id, name, description, created_by, max_members, current_members,
	contribution_amount, contribution_frequency, purchase_price, total_savings,
	status, created_at, updated_at`

func scanChama(row pgx.Row) (*models.Chama, error) {
	c := &models.Chama{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.MaxMembers, &c.CurrentMembers,
		&c.ContributionAmount, &c.ContributionFrequency, &c.PurchasePrice, &c.TotalSavings,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chama: %w", err)
	}
	return c, nil
}

func (q *Queries) CreateChama(ctx context.Context, c *models.Chama) error {
	query := `
		INSERT INTO chamas (id, name, description, created_by, max_members, current_members,
			contribution_amount, contribution_frequency, purchase_price, total_savings,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query,
		c.ID, c.Name, c.Description, c.CreatedBy, c.MaxMembers, c.CurrentMembers,
		c.ContributionAmount, c.ContributionFrequency, c.PurchasePrice, c.TotalSavings, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chama: %w", err)
	}
	return nil
}

func (q *Queries) GetChama(ctx context.Context, id uuid.UUID) (*models.Chama, error) {
	return scanChama(q.db.QueryRow(ctx,
		`SELECT `+chamaColumns+` FROM chamas WHERE id = $1`, id))
}

func (q *Queries) GetChamaForUpdate(ctx context.Context, id uuid.UUID) (*models.Chama, error) {
	return scanChama(q.db.QueryRow(ctx,
		`SELECT `+chamaColumns+` FROM chamas WHERE id = $1 FOR UPDATE`, id))
}

// ListMarketplaceChamas returns purchasable (not yet activated) chamas.
func (q *Queries) ListMarketplaceChamas(ctx context.Context, limit, offset int32) ([]models.Chama, error) {
	query := `
		SELECT ` + chamaColumns + `
		FROM chamas
		WHERE status = 'available'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace chamas: %w", err)
	}
	defer rows.Close()

	var chamas []models.Chama
	for rows.Next() {
		c, err := scanChama(rows)
		if err != nil {
			return nil, err
		}
		chamas = append(chamas, *c)
	}
	return chamas, rows.Err()
}

// ActivateChama flips an available chama to active and assigns its owner.
func (q *Queries) ActivateChama(ctx context.Context, id, ownerID uuid.UUID) error {
	query := `
		UPDATE chamas
		SET status = 'active', created_by = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'available'`
	tag, err := q.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to activate chama: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (q *Queries) UpdateChamaSettings(ctx context.Context, id uuid.UUID, contributionAmount int64, frequency string, maxMembers int32) (*models.Chama, error) {
	query := `
		UPDATE chamas
		SET contribution_amount = $2, contribution_frequency = $3, max_members = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + chamaColumns
	return scanChama(q.db.QueryRow(ctx, query, id, contributionAmount, frequency, maxMembers))
}

// AddChamaSavings bumps the chama's running total of verified contributions.
func (q *Queries) AddChamaSavings(ctx context.Context, id uuid.UUID, delta int64) error {
	query := `UPDATE chamas SET total_savings = total_savings + $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to add chama savings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (q *Queries) IncrementChamaMembers(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE chamas
		SET current_members = current_members + 1, updated_at = NOW()
		WHERE id = $1 AND current_members < max_members`
	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment chama members: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrChamaFull
	}
	return nil
}
