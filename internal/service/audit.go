package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store QueryStore
}

func NewAuditService(store QueryStore) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, entityType, entityID string, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	var actor uuid.NullUUID
	if actorID != nil {
		actor = uuid.NullUUID{UUID: *actorID, Valid: true}
	}

	if err := qtx.InsertAuditRecord(ctx, &models.AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actor,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
