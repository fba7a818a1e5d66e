package repository

import (
	"context"
	"fmt"

	"github.com/hanzara/chamapay-backend/internal/models"
)

func (q *Queries) InsertAuditRecord(ctx context.Context, rec *models.AuditRecord) error {
	query := `
		INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`
	err := q.db.QueryRow(ctx, query,
		rec.EntityType, rec.EntityID, rec.ActorID, rec.Action, rec.PrevState, rec.NextState, rec.Metadata).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}
