package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-accounts-api/internal/application/verification"
	"github.com/go-accounts-api/internal/pkg/validate"
)

// resetRequestedMessage is the single response body for reset requests. The
// same bytes go out whether or not the email is registered.
const resetRequestedMessage = "if the email is registered, a reset code has been sent"

// PasswordResetHandler handles the forgotten-password flow.
type PasswordResetHandler struct {
	svc verification.Service
}

func NewPasswordResetHandler(svc verification.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

type resetConfirmRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: resetRequestedMessage})
}

func (h *PasswordResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword, req.ConfirmPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset"})
}
