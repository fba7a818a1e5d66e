package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hanzara/chamapay-backend/internal/api/middleware"
	"github.com/hanzara/chamapay-backend/internal/api/problem"
	"github.com/hanzara/chamapay-backend/internal/gateway"
	"github.com/hanzara/chamapay-backend/internal/models"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, errors.New("invalid user_id in auth context")
	}

	return actorID, nil
}

// respondServiceError maps domain and gateway errors to problem responses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *gateway.RejectedError
	switch {
	case errors.As(err, &rejected):
		RespondError(w, r, http.StatusBadRequest, "gateway/rejected", rejected.Message)
	case errors.Is(err, gateway.ErrUnavailable):
		RespondError(w, r, http.StatusInternalServerError, "gateway/unavailable", "payment gateway unavailable")
	case errors.Is(err, models.ErrInvalidAmount):
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-amount", err.Error())
	case errors.Is(err, models.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-input", err.Error())
	case errors.Is(err, models.ErrInsufficientFunds):
		RespondError(w, r, http.StatusUnprocessableEntity, "wallet/insufficient-funds", err.Error())
	case errors.Is(err, models.ErrWalletLocked):
		RespondError(w, r, http.StatusForbidden, "wallet/locked", err.Error())
	case errors.Is(err, models.ErrSelfTransfer):
		RespondError(w, r, http.StatusBadRequest, "wallet/self-transfer", err.Error())
	case errors.Is(err, models.ErrNotAMember):
		RespondError(w, r, http.StatusForbidden, "chama/not-a-member", err.Error())
	case errors.Is(err, models.ErrChamaFull):
		RespondError(w, r, http.StatusConflict, "chama/full", err.Error())
	case errors.Is(err, models.ErrAlreadyMember):
		RespondError(w, r, http.StatusConflict, "chama/already-member", err.Error())
	case errors.Is(err, models.ErrForbidden):
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-role", err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		RespondError(w, r, http.StatusConflict, "state/invalid-transition", err.Error())
	case errors.Is(err, models.ErrDuplicateReference):
		RespondError(w, r, http.StatusConflict, "ledger/duplicate-reference", err.Error())
	case errors.Is(err, models.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "resource not found")
	default:
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}

func pathUUID(r *http.Request, value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	return id, err == nil
}
