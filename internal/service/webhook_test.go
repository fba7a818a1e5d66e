package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanzara/chamapay-backend/internal/domain"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

const webhookTestKey = "whsec_test_key"

func signPayload(payload []byte) string {
	h := hmac.New(sha512.New, []byte(webhookTestKey))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func chargeEvent(reference, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "charge.%s",
		"data": {
			"reference": %q,
			"status": %q,
			"gateway_response": "Approved",
			"channel": "mobile_money",
			"amount": 50000,
			"currency": "KES",
			"paid_at": "2026-08-01T12:00:00Z"
		}
	}`, status, reference, status))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWebhookService(store, newLedger(store), webhookTestKey, false)

	payload := chargeEvent("PSK-hook-1", "success")
	_, err := svc.HandleCallback(context.Background(), payload, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookFinalizesSignedEvent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	svc := NewWebhookService(store, ledger, webhookTestKey, false)
	ctx := context.Background()

	user := createTestUser(t, db, "hook@example.com")
	chama := createTestChama(t, db, "active", 0)
	member := createTestMember(t, db, chama.ID, user.ID, "member", 0, 0)

	tx := &models.Transaction{
		UserID:    user.ID,
		ChamaID:   uuid.NullUUID{UUID: chama.ID, Valid: true},
		Reference: "PSK-hook-2",
		Purpose:   domain.PurposeContribution,
		Amount:    500_00,
	}
	recordPendingTx(t, store, ledger, tx)

	payload := chargeEvent(tx.Reference, "success")
	finalized, err := svc.HandleCallback(ctx, payload, signPayload(payload))
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, finalized.Status)
	assert.Equal(t, "mobile_money", finalized.Channel)
	require.NotNil(t, finalized.PaidAt)

	after, err := repository.New(db).GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_00), after.SavingsBalance)
}

func TestWebhookNonSuccessCollapsesToFailed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	ledger := newLedger(store)
	svc := NewWebhookService(store, ledger, "", true)
	ctx := context.Background()

	user := createTestUser(t, db, "abandoned@example.com")

	tx := &models.Transaction{
		UserID:    user.ID,
		Reference: "PSK-hook-3",
		Purpose:   domain.PurposePersonalSavings,
		Amount:    100_00,
	}
	recordPendingTx(t, store, ledger, tx)

	payload := chargeEvent(tx.Reference, "abandoned")
	finalized, err := svc.HandleCallback(ctx, payload, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, finalized.Status)
}

func TestWebhookUnknownReference(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWebhookService(store, newLedger(store), "", true)

	payload := chargeEvent("PSK-never-seen", "success")
	_, err := svc.HandleCallback(context.Background(), payload, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
