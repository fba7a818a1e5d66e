package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// ContributionHandler exposes contribution recording and verification.
type ContributionHandler struct {
	contributions *service.ContributionService
}

func NewContributionHandler(contributions *service.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributions: contributions}
}

// Record stores a pending contribution for the caller.
func (h *ContributionHandler) Record(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	contribution, err := h.contributions.Record(r.Context(), chamaID, actorID, req.Amount, req.PaymentMethod)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, contributionView(contribution))
}

// ListPending returns unverified contributions for treasurers.
func (h *ContributionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
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

	pending, err := h.contributions.ListPending(r.Context(), chamaID, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(pending))
	for i := range pending {
		views = append(views, contributionView(&pending[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"contributions": views})
}

// Verify confirms a pending contribution.
func (h *ContributionHandler) Verify(w http.ResponseWriter, r *http.Request) {
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
	contributionID, ok := pathUUID(r, chi.URLParam(r, "cid"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-contribution-id", "contribution id must be a UUID")
		return
	}

	contribution, err := h.contributions.Verify(r.Context(), chamaID, contributionID, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, contributionView(contribution))
}

func contributionView(c *models.Contribution) map[string]any {
	view := map[string]any{
		"id":             c.ID,
		"chama_id":       c.ChamaID,
		"member_id":      c.MemberID,
		"amount":         centsToShillings(c.Amount),
		"payment_method": c.PaymentMethod,
		"status":         c.Status,
		"created_at":     c.CreatedAt,
	}
	if c.VerifiedBy.Valid {
		view["verified_by"] = c.VerifiedBy.UUID
	}
	if c.VerifiedAt != nil {
		view["verified_at"] = c.VerifiedAt
	}
	return view
}
