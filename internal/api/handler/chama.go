package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/api/middleware"
	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// ChamaHandler exposes the marketplace and group administration.
type ChamaHandler struct {
	chamas *service.ChamaService
}

func NewChamaHandler(chamas *service.ChamaService) *ChamaHandler {
	return &ChamaHandler{chamas: chamas}
}

// ListMarketplace returns purchasable chamas.
func (h *ChamaHandler) ListMarketplace(w http.ResponseWriter, r *http.Request) {
	chamas, err := h.chamas.ListMarketplace(r.Context(), 50, 0)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(chamas))
	for i := range chamas {
		views = append(views, chamaView(&chamas[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"chamas": views})
}

// Purchase starts the registration payment for a marketplace chama.
func (h *ChamaHandler) Purchase(w http.ResponseWriter, r *http.Request) {
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

	out, err := h.chamas.Purchase(r.Context(), chamaID, actorID, middleware.UserEmailFromContext(r.Context()))
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

// GetChama returns one chama.
func (h *ChamaHandler) GetChama(w http.ResponseWriter, r *http.Request) {
	chamaID, ok := pathUUID(r, chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-chama-id", "chama id must be a UUID")
		return
	}

	chama, err := h.chamas.GetChama(r.Context(), chamaID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, chamaView(chama))
}

// ListMembers returns the member roster.
func (h *ChamaHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
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

	members, err := h.chamas.ListMembers(r.Context(), chamaID, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(members))
	for _, m := range members {
		views = append(views, map[string]any{
			"id":                m.ID,
			"user_id":           m.UserID,
			"role":              m.Role,
			"savings_balance":   centsToShillings(m.SavingsBalance),
			"mgr_balance":       centsToShillings(m.MGRBalance),
			"withdrawal_locked": m.WithdrawalLocked,
			"joined_at":         m.JoinedAt,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"members": views})
}

// SetWithdrawalLock freezes or unfreezes a member's wallet. Admin only.
func (h *ChamaHandler) SetWithdrawalLock(w http.ResponseWriter, r *http.Request) {
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
	memberID, ok := pathUUID(r, chi.URLParam(r, "mid"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-member-id", "member id must be a UUID")
		return
	}

	var req struct {
		Locked bool `json:"locked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	if err := h.chamas.SetWithdrawalLock(r.Context(), chamaID, memberID, actorID, req.Locked); err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"success": true, "locked": req.Locked})
}

// UpdateSettings changes contribution terms. Admin only.
func (h *ChamaHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
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
		ContributionAmount    decimal.Decimal `json:"contribution_amount"`
		ContributionFrequency string          `json:"contribution_frequency"`
		MaxMembers            int32           `json:"max_members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	chama, err := h.chamas.UpdateSettings(r.Context(), chamaID, actorID,
		req.ContributionAmount, req.ContributionFrequency, req.MaxMembers)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, chamaView(chama))
}

func chamaView(c *models.Chama) map[string]any {
	return map[string]any{
		"id":                     c.ID,
		"name":                   c.Name,
		"description":            c.Description,
		"max_members":            c.MaxMembers,
		"current_members":        c.CurrentMembers,
		"contribution_amount":    centsToShillings(c.ContributionAmount),
		"contribution_frequency": c.ContributionFrequency,
		"purchase_price":         centsToShillings(c.PurchasePrice),
		"total_savings":          centsToShillings(c.TotalSavings),
		"status":                 c.Status,
		"created_at":             c.CreatedAt,
	}
}
