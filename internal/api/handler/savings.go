package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/service"
)

// SavingsHandler exposes personal savings goals.
type SavingsHandler struct {
	savings *service.SavingsService
}

func NewSavingsHandler(savings *service.SavingsService) *SavingsHandler {
	return &SavingsHandler{savings: savings}
}

// AddSavings credits a goal and the caller's personal wallet.
func (h *SavingsHandler) AddSavings(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	var req struct {
		GoalName     string          `json:"goal_name"`
		TargetAmount decimal.Decimal `json:"target_amount"`
		Amount       decimal.Decimal `json:"amount"`
		Frequency    string          `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	goal, err := h.savings.AddSavings(r.Context(), actorID, req.GoalName, req.TargetAmount, req.Amount, req.Frequency)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"goal_id":        goal.ID,
		"name":           goal.Name,
		"target_amount":  centsToShillings(goal.TargetAmount),
		"current_amount": centsToShillings(goal.CurrentAmount),
		"frequency":      goal.Frequency,
	})
}

// ListGoals returns the caller's savings goals.
func (h *SavingsHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}

	goals, err := h.savings.ListGoals(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(goals))
	for _, g := range goals {
		views = append(views, map[string]any{
			"id":             g.ID,
			"name":           g.Name,
			"target_amount":  centsToShillings(g.TargetAmount),
			"current_amount": centsToShillings(g.CurrentAmount),
			"frequency":      g.Frequency,
			"created_at":     g.CreatedAt,
		})
	}
	RespondJSON(w, http.StatusOK, map[string]any{"goals": views})
}
