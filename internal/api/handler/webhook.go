package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// WebhookHandler receives provider callback events.
type WebhookHandler struct {
	webhooks *service.WebhookService
}

func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// HandleCallback verifies and applies a provider charge event. Unknown
// references are acknowledged with 200 so the provider stops retrying;
// reconciliation picks them up from the logs.
func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "failed to read request body")
		return
	}

	signature := r.Header.Get("X-Paystack-Signature")
	tx, err := h.webhooks.HandleCallback(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "invalid signature")
			return
		}
		if errors.Is(err, models.ErrNotFound) {
			RespondJSON(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"received":  true,
		"reference": tx.Reference,
		"status":    tx.Status,
	})
}
