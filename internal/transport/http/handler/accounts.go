package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-accounts-api/internal/application/account"
	"github.com/go-accounts-api/internal/application/verification"
	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/validate"
	"github.com/go-accounts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles registration, profile, and account lifecycle endpoints.
type AccountHandler struct {
	svc          account.Service
	verification verification.Service
}

func NewAccountHandler(svc account.Service, verificationSvc verification.Service) *AccountHandler {
	return &AccountHandler{svc: svc, verification: verificationSvc}
}

// Register creates the account and kicks off email verification. A failed
// verification send does not fail the registration; the user can ask for a
// resend.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := h.verification.RequestVerification(r.Context(), u.Email); err != nil {
		slog.Warn("verification request after registration failed", "user_id", u.UserID, "err", err)
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		User:    u,
		Message: "account created, check your email for a verification code",
	})
}

func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.GetWithProfile(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), claims.UserID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.UserID, req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}

func (h *AccountHandler) VerificationStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.Get(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_verified": u.IsVerified})
}

// Dashboard is gated on a verified email. Unverified accounts can log in but
// see nothing here until they confirm the address.
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.GetWithProfile(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !u.IsVerified {
		writeError(w, http.StatusForbidden, "email not verified")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"platform_id": u.PlatformID,
		"email":       u.Email,
		"profile":     u.Profile,
	})
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}

// UploadAvatar accepts a multipart form with a single "file" field.
func (h *AccountHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()
	if err := h.svc.UploadAvatar(r.Context(), claims.UserID, header.Filename, file); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "avatar uploaded"})
}

func (h *AccountHandler) AvatarURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.svc.AvatarURL(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// List returns a page of active accounts. Admin only.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")
	users, next, err := h.svc.List(r.Context(), limit, cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedUsersEnvelope{Data: users, Cursor: next})
}

func (h *AccountHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.svc.GetWithProfile(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AccountHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
