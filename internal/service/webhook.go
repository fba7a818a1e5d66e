package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hanzara/chamapay-backend/internal/models"
)

var ErrInvalidSignature = errors.New("invalid signature")

// WebhookService handles provider callback events. Events converge on the
// same idempotent finalize as explicit verification, so a callback racing a
// verify is harmless.
type WebhookService struct {
	store   QueryStore
	ledger  *LedgerService
	hmacKey []byte
	skipSig bool
}

func NewWebhookService(store QueryStore, ledger *LedgerService, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		store:   store,
		ledger:  ledger,
		hmacKey: []byte(hmacKey),
		skipSig: skipSignature,
	}
}

// CallbackEvent is the provider's charge event payload.
type CallbackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		GatewayResponse string `json:"gateway_response"`
		Channel         string `json:"channel"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		PaidAt          string `json:"paid_at"`
	} `json:"data"`
}

// HandleCallback verifies the event signature and finalizes the referenced
// transaction.
func (s *WebhookService) HandleCallback(ctx context.Context, payload []byte, signature string) (*models.Transaction, error) {
	if !s.verifyHMAC(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var event CallbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		return nil, errors.New("reference is required")
	}

	status := "failed"
	if event.Data.Status == "success" {
		status = "success"
	}

	var paidAt *time.Time
	if event.Data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, event.Data.PaidAt); err == nil {
			paidAt = &t
		}
	}

	return s.ledger.Finalize(ctx, reference, status, FinalizeFields{
		Channel:         event.Data.Channel,
		GatewayResponse: event.Data.GatewayResponse,
		ResultCode:      event.Data.Status,
		PaidAt:          paidAt,
	})
}

// verifyHMAC checks the provider's HMAC-SHA512 hex signature of the raw body.
func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha512.New, s.hmacKey)
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}
