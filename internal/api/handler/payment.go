package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/api/middleware"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// PaymentHandler exposes checkout initialization and verification.
type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type paymentRequest struct {
	Action    string          `json:"action"`
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"amount"`
	Purpose   string          `json:"purpose"`
	ChamaID   string          `json:"chama_id"`
	Channels  []string        `json:"channels"`
	Reference string          `json:"reference"`
	Metadata  map[string]any  `json:"metadata"`
}

// Handle dispatches on the action field the way the original checkout
// endpoint did: one POST route covering initialize and verify.
func (h *PaymentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "initialize":
		h.initialize(w, r, req)
	case "verify":
		h.verify(w, r, req.Reference)
	default:
		RespondError(w, r, http.StatusBadRequest, "payments/invalid-action", "action must be initialize or verify")
	}
}

func (h *PaymentHandler) initialize(w http.ResponseWriter, r *http.Request, req paymentRequest) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	email := req.Email
	if email == "" {
		email = middleware.UserEmailFromContext(r.Context())
	}

	var chamaID uuid.NullUUID
	if req.ChamaID != "" {
		id, ok := pathUUID(r, req.ChamaID)
		if !ok {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-chama-id", "chama_id must be a UUID")
			return
		}
		chamaID = uuid.NullUUID{UUID: id, Valid: true}
	}

	out, err := h.payments.Initialize(r.Context(), service.InitializeInput{
		UserID:   actorID,
		Email:    email,
		Amount:   req.Amount,
		Purpose:  req.Purpose,
		ChamaID:  chamaID,
		Channels: req.Channels,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"authorization_url": out.AuthorizationURL,
		"access_code":       out.AccessCode,
		"reference":         out.Reference,
	})
}

func (h *PaymentHandler) verify(w http.ResponseWriter, r *http.Request, reference string) {
	if strings.TrimSpace(reference) == "" {
		RespondError(w, r, http.StatusBadRequest, "payments/missing-reference", "reference is required for verify")
		return
	}

	tx, err := h.payments.Verify(r.Context(), reference)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"status":      tx.Status,
		"transaction": transactionView(tx),
	})
}

// ListTransactions returns the caller's ledger history.
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	txs, err := h.payments.ListUserTransactions(r.Context(), actorID, 50, 0)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(txs))
	for i := range txs {
		views = append(views, transactionView(&txs[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

func transactionView(tx *models.Transaction) map[string]any {
	view := map[string]any{
		"id":               tx.ID,
		"reference":        tx.Reference,
		"purpose":          tx.Purpose,
		"amount":           centsToShillings(tx.Amount),
		"currency":         tx.Currency,
		"status":           tx.Status,
		"channel":          tx.Channel,
		"gateway_response": tx.GatewayResponse,
		"created_at":       tx.CreatedAt,
	}
	if tx.ChamaID.Valid {
		view["chama_id"] = tx.ChamaID.UUID
	}
	if tx.PaidAt != nil {
		view["paid_at"] = tx.PaidAt
	}
	return view
}
