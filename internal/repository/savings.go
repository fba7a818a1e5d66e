package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hanzara/chamapay-backend/internal/models"
)

const savingsColumns = `id, user_id, name, target_amount, current_amount, frequency,
	created_at, updated_at`

// UpsertSavingsGoal creates the goal if missing and adds amount to its
// running total, mirroring the original add-savings stored procedure.
func (q *Queries) UpsertSavingsGoal(ctx context.Context, userID uuid.UUID, name string, targetAmount, amount int64, frequency string) (*models.SavingsGoal, error) {
	query := `
		INSERT INTO savings_goals (id, user_id, name, target_amount, current_amount, frequency,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, name) DO UPDATE
		SET current_amount = savings_goals.current_amount + $5, updated_at = NOW()
		RETURNING ` + savingsColumns
	g := &models.SavingsGoal{}
	err := q.db.QueryRow(ctx, query, uuid.New(), userID, name, targetAmount, amount, frequency).
		Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Frequency,
			&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert savings goal: %w", err)
	}
	return g, nil
}

func (q *Queries) ListSavingsGoals(ctx context.Context, userID uuid.UUID) ([]models.SavingsGoal, error) {
	query := `
		SELECT ` + savingsColumns + `
		FROM savings_goals
		WHERE user_id = $1
		ORDER BY created_at`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings goals: %w", err)
	}
	defer rows.Close()

	var goals []models.SavingsGoal
	for rows.Next() {
		g := models.SavingsGoal{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
			&g.Frequency, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
