package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hanzara/chamapay-backend/internal/models"
)

const transactionColumns = `id, user_id, chama_id, reference, access_code, purpose,
	amount, currency, status, channel, gateway_response, result_code, paid_at,
	created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.ChamaID, &t.Reference, &t.AccessCode, &t.Purpose,
		&t.Amount, &t.Currency, &t.Status, &t.Channel, &t.GatewayResponse, &t.ResultCode,
		&t.PaidAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return t, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, chama_id, reference, access_code, purpose,
			amount, currency, status, channel, gateway_response, result_code, paid_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query,
		t.ID, t.UserID, t.ChamaID, t.Reference, t.AccessCode, t.Purpose,
		t.Amount, t.Currency, t.Status, t.Channel, t.GatewayResponse, t.ResultCode, t.PaidAt).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
}

// GetTransactionByReferenceForUpdate locks the ledger row for finalization.
func (q *Queries) GetTransactionByReferenceForUpdate(ctx context.Context, reference string) (*models.Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference))
}

// FinalizeTransaction writes the terminal status and provider fields.
func (q *Queries) FinalizeTransaction(ctx context.Context, reference, status, channel, gatewayResponse, resultCode string, paidAt *time.Time) (*models.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $2, channel = $3, gateway_response = $4, result_code = $5,
			paid_at = $6, updated_at = NOW()
		WHERE reference = $1
		RETURNING ` + transactionColumns
	return scanTransaction(q.db.QueryRow(ctx, query,
		reference, status, channel, gatewayResponse, resultCode, paidAt))
}

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// ListStalePendingTransactions returns pending rows older than the given age,
// oldest first, for the verification worker.
func (q *Queries) ListStalePendingTransactions(ctx context.Context, olderThan time.Duration, limit int32) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'pending' AND created_at < NOW() - make_interval(secs => $1)
		ORDER BY created_at ASC
		LIMIT $2`
	rows, err := q.db.Query(ctx, query, olderThan.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// ListPendingWithdrawals returns pending withdrawal holds, oldest first, for
// the payout executor.
func (q *Queries) ListPendingWithdrawals(ctx context.Context, limit int32) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'pending' AND purpose = 'withdrawal'
		ORDER BY created_at ASC
		LIMIT $1`
	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// SumSuccessfulByChamaPurpose totals successful ledger rows per purpose for a
// chama, used by reconciliation.
func (q *Queries) SumSuccessfulByChamaPurpose(ctx context.Context, chamaID uuid.UUID, purpose string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE chama_id = $1 AND purpose = $2 AND status = 'success'`
	var total int64
	if err := q.db.QueryRow(ctx, query, chamaID, purpose).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum successful transactions: %w", err)
	}
	return total, nil
}

// ListActiveChamaIDs returns ids of chamas with at least one ledger row or
// member, for reconciliation sweeps.
func (q *Queries) ListActiveChamaIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM chamas WHERE status = 'active' ORDER BY created_at`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active chamas: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chama id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
