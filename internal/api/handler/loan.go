package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hanzara/chamapay-backend/internal/models"
	"github.com/hanzara/chamapay-backend/internal/service"
)

// LoanHandler exposes loan application, review, and repayment.
type LoanHandler struct {
	loans *service.LoanService
}

func NewLoanHandler(loans *service.LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Apply files a loan application.
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
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
		Amount         decimal.Decimal `json:"amount"`
		DurationMonths int32           `json:"duration_months"`
		Purpose        string          `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	loan, err := h.loans.Apply(r.Context(), chamaID, actorID, req.Amount, req.DurationMonths, req.Purpose)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, loanView(loan))
}

// List returns the chama's loans.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
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

	loans, err := h.loans.List(r.Context(), chamaID, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(loans))
	for i := range loans {
		views = append(views, loanView(&loans[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"loans": views})
}

// Approve disburses and activates a pending loan. Admin only.
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// Reject declines a pending loan. Admin only.
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *LoanHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	loanID, ok := pathUUID(r, chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-loan-id", "loan id must be a UUID")
		return
	}

	var loan *models.Loan
	if approve {
		loan, err = h.loans.Approve(r.Context(), loanID, actorID)
	} else {
		loan, err = h.loans.Reject(r.Context(), loanID, actorID)
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, loanView(loan))
}

// Repay applies a repayment from the borrower's MGR wallet.
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	actorID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	loanID, ok := pathUUID(r, chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-loan-id", "loan id must be a UUID")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "invalid request body")
		return
	}

	loan, err := h.loans.Repay(r.Context(), loanID, actorID, req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, loanView(loan))
}

func loanView(l *models.Loan) map[string]any {
	view := map[string]any{
		"id":              l.ID,
		"chama_id":        l.ChamaID,
		"borrower_id":     l.BorrowerID,
		"amount":          centsToShillings(l.Amount),
		"interest_rate":   l.InterestRate,
		"duration_months": l.DurationMonths,
		"purpose":         l.Purpose,
		"status":          l.Status,
		"total_due":       centsToShillings(l.TotalDue),
		"repaid_amount":   centsToShillings(l.RepaidAmount),
		"created_at":      l.CreatedAt,
	}
	if l.ApprovedBy.Valid {
		view["approved_by"] = l.ApprovedBy.UUID
	}
	if l.DisbursedAt != nil {
		view["disbursed_at"] = l.DisbursedAt
	}
	return view
}
