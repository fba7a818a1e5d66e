package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hanzara/chamapay-backend/internal/models"
)

const memberColumns = `id, chama_id, user_id, role, savings_balance, mgr_balance,
	withdrawal_locked, joined_at, updated_at`

func scanMember(row pgx.Row) (*models.ChamaMember, error) {
	m := &models.ChamaMember{}
	err := row.Scan(
		&m.ID, &m.ChamaID, &m.UserID, &m.Role, &m.SavingsBalance, &m.MGRBalance,
		&m.WithdrawalLocked, &m.JoinedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chama member: %w", err)
	}
	return m, nil
}

func (q *Queries) CreateChamaMember(ctx context.Context, m *models.ChamaMember) error {
	query := `
		INSERT INTO chama_members (id, chama_id, user_id, role, savings_balance, mgr_balance,
			withdrawal_locked, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING joined_at, updated_at`
	err := q.db.QueryRow(ctx, query,
		m.ID, m.ChamaID, m.UserID, m.Role, m.SavingsBalance, m.MGRBalance, m.WithdrawalLocked).
		Scan(&m.JoinedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrAlreadyMember
		}
		return fmt.Errorf("failed to create chama member: %w", err)
	}
	return nil
}

func (q *Queries) GetMember(ctx context.Context, chamaID, userID uuid.UUID) (*models.ChamaMember, error) {
	return scanMember(q.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM chama_members WHERE chama_id = $1 AND user_id = $2`,
		chamaID, userID))
}

func (q *Queries) GetMemberByID(ctx context.Context, id uuid.UUID) (*models.ChamaMember, error) {
	return scanMember(q.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM chama_members WHERE id = $1`, id))
}

// GetMemberForUpdate locks a membership row. Callers moving funds between two
// members must lock both rows ordered by member id to avoid deadlocks.
func (q *Queries) GetMemberForUpdate(ctx context.Context, id uuid.UUID) (*models.ChamaMember, error) {
	return scanMember(q.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM chama_members WHERE id = $1 FOR UPDATE`, id))
}

func (q *Queries) ListMembers(ctx context.Context, chamaID uuid.UUID) ([]models.ChamaMember, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+memberColumns+` FROM chama_members WHERE chama_id = $1 ORDER BY joined_at`,
		chamaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chama members: %w", err)
	}
	defer rows.Close()

	var members []models.ChamaMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// AdjustMemberBalances applies deltas to both balances of a locked membership
// row. Negative results are rejected at the database.
func (q *Queries) AdjustMemberBalances(ctx context.Context, id uuid.UUID, savingsDelta, mgrDelta int64) (*models.ChamaMember, error) {
	query := `
		UPDATE chama_members
		SET savings_balance = savings_balance + $2,
			mgr_balance = mgr_balance + $3,
			updated_at = NOW()
		WHERE id = $1
			AND savings_balance + $2 >= 0
			AND mgr_balance + $3 >= 0
		RETURNING ` + memberColumns
	m, err := scanMember(q.db.QueryRow(ctx, query, id, savingsDelta, mgrDelta))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInsufficientFunds
	}
	return m, err
}

func (q *Queries) SetWithdrawalLock(ctx context.Context, id uuid.UUID, locked bool) error {
	query := `UPDATE chama_members SET withdrawal_locked = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, locked)
	if err != nil {
		return fmt.Errorf("failed to set withdrawal lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SumMemberBalances returns the chama-wide totals of both balances, used by
// reconciliation.
func (q *Queries) SumMemberBalances(ctx context.Context, chamaID uuid.UUID) (savings, mgr int64, err error) {
	query := `
		SELECT COALESCE(SUM(savings_balance), 0), COALESCE(SUM(mgr_balance), 0)
		FROM chama_members WHERE chama_id = $1`
	if err := q.db.QueryRow(ctx, query, chamaID).Scan(&savings, &mgr); err != nil {
		return 0, 0, fmt.Errorf("failed to sum member balances: %w", err)
	}
	return savings, mgr, nil
}
