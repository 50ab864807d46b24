package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-accounts-api/internal/application/verification"
	"github.com/go-accounts-api/internal/pkg/validate"
)

// VerificationHandler handles email verification endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *VerificationHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email verified"})
}

func (h *VerificationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := h.svc.RequestVerification(r.Context(), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}
