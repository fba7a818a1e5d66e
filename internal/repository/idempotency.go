package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hanzara/chamapay-backend/internal/models"
)

const idempotencyColumns = `idempotency_key, request_hash, method, path, response_status,
	response_body, content_type, in_progress, created_at, expires_at`

func scanIdempotencyRecord(row pgx.Row) (*models.IdempotencyRecord, error) {
	rec := &models.IdempotencyRecord{}
	err := row.Scan(
		&rec.Key, &rec.RequestHash, &rec.Method, &rec.Path, &rec.ResponseStatus,
		&rec.ResponseBody, &rec.ContentType, &rec.InProgress, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan idempotency record: %w", err)
	}
	return rec, nil
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	return scanIdempotencyRecord(q.db.QueryRow(ctx,
		`SELECT `+idempotencyColumns+` FROM idempotency_keys
		 WHERE idempotency_key = $1 AND expires_at > NOW()`, key))
}

// ReserveIdempotencyKey claims a key for the current request. Returns false
// when another request already holds it.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at, expires_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW() + make_interval(secs => $5))
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING idempotency_key`
	var got string
	err := q.db.QueryRow(ctx, query, key, requestHash, method, path, ttl.Seconds()).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return true, nil
}

// FinalizeIdempotencyKey stores the response for replay and releases the
// in-progress claim.
func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int32, body []byte, contentType string) (*models.IdempotencyRecord, error) {
	query := `
		UPDATE idempotency_keys
		SET response_status = $3, response_body = $4, content_type = $5, in_progress = FALSE
		WHERE idempotency_key = $1 AND request_hash = $2
		RETURNING ` + idempotencyColumns
	return scanIdempotencyRecord(q.db.QueryRow(ctx, query, key, requestHash, status, body, contentType))
}

// DeleteExpiredIdempotencyRecords prunes records past their TTL.
func (q *Queries) DeleteExpiredIdempotencyRecords(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
