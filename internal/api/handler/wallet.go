package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/service"
)

// WalletHandler exposes the member wallet operations.
type WalletHandler struct {
	wallets *service.WalletService
}

func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletOpRequest struct {
	Operation         string          `json:"operation"`
	Amount            decimal.Decimal `json:"amount"`
	RecipientMemberID string          `json:"recipient_member_id"`
	PaymentMethod     string          `json:"payment_method"`
}

// Dispatch runs a topup, withdraw, or send against the caller's membership.
func (h *WalletHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	chamaID, ok := pathUUID(r, chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-chama-id", "chama id must be a UUID")
		return
	}

	var req walletOpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	var recipient uuid.NullUUID
	if req.RecipientMemberID != "" {
		id, ok := pathUUID(r, req.RecipientMemberID)
		if !ok {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-recipient", "recipient_member_id must be a UUID")
			return
		}
		recipient = uuid.NullUUID{UUID: id, Valid: true}
	}

	result, err := h.wallets.Dispatch(r.Context(), service.WalletOpInput{
		ChamaID:           chamaID,
		UserID:            actorID,
		Operation:         req.Operation,
		Amount:            req.Amount,
		RecipientMemberID: recipient,
		PaymentMethod:     req.PaymentMethod,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"operation":       result.Operation,
		"savings_balance": centsToShillings(result.SavingsBalance),
		"mgr_balance":     centsToShillings(result.MGRBalance),
		"fee":             centsToShillings(result.Fee),
		"reference":       result.Reference,
	})
}

// GetBalances returns the caller's balances in the chama.
func (h *WalletHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	chamaID, ok := pathUUID(r, chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-chama-id", "chama id must be a UUID")
		return
	}

	member, err := h.wallets.GetBalances(r.Context(), chamaID, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"member_id":         member.ID,
		"role":              member.Role,
		"savings_balance":   centsToShillings(member.SavingsBalance),
		"mgr_balance":       centsToShillings(member.MGRBalance),
		"withdrawal_locked": member.WithdrawalLocked,
	})
}

func centsToShillings(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}
