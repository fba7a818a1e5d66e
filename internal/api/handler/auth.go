package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hanzara/chamapay-backend/internal/api/middleware"
	"github.com/hanzara/chamapay-backend/internal/repository"
)

// AuthHandler issues JWTs for known users. Mock login by email; password
// verification lives with the identity provider, not this service.
type AuthHandler struct {
	store *repository.Store
}

func NewAuthHandler(store *repository.Store) *AuthHandler {
	return &AuthHandler{store: store}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "email is required")
		return
	}

	user, err := h.store.Queries().GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.ID.String(),
		"user_id": user.ID.String(),
		"email":   user.Email,
		"iss":     middleware.JWTIssuer(),
		"aud":     middleware.JWTAudience(),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	})

	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/token-signing", "failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"token": signed})
}
