package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-accounts-api/internal/application/verification"
	"github.com/go-accounts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	h := NewAccountHandler(&mockAccountSvc{}, &mockVerificationSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	h := NewAccountHandler(&mockAccountSvc{}, &mockVerificationSvc{})
	body, _ := json.Marshal(domain.CreateUserRequest{Email: "alice@example.com"}) // missing passwords
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRegister_Conflict(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	h := NewAccountHandler(svc, &mockVerificationSvc{})
	body, _ := json.Marshal(domain.CreateUserRequest{
		Email: "alice@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)
	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestRegister_HappyPath_SendsVerification(t *testing.T) {
	svc := &mockAccountSvc{}
	u := &domain.User{UserID: "u1", Email: "alice@example.com", PlatformID: "12345678"}
	svc.On("Register", mock.Anything, mock.Anything).Return(u, nil)
	verSvc := &mockVerificationSvc{}
	verSvc.On("RequestVerification", mock.Anything, "alice@example.com").
		Return(&verification.IssueResult{Delivered: true}, nil)
	h := NewAccountHandler(svc, verSvc)
	body, _ := json.Marshal(domain.CreateUserRequest{
		Email: "alice@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	svc.AssertExpectations(t)
	verSvc.AssertExpectations(t)
}

func TestRegister_VerificationSendFailureStillCreated(t *testing.T) {
	svc := &mockAccountSvc{}
	u := &domain.User{UserID: "u1", Email: "alice@example.com"}
	svc.On("Register", mock.Anything, mock.Anything).Return(u, nil)
	verSvc := &mockVerificationSvc{}
	verSvc.On("RequestVerification", mock.Anything, "alice@example.com").
		Return(nil, assert.AnError)
	h := NewAccountHandler(svc, verSvc)
	body, _ := json.Marshal(domain.CreateUserRequest{
		Email: "alice@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

// --- Dashboard tests ---

func TestDashboard_UnverifiedForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("GetWithProfile", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", IsVerified: false,
	}, nil)
	h := NewAccountHandler(svc, &mockVerificationSvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/dashboard", "u1", "s1", false, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Dashboard), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDashboard_VerifiedSeesPlatformID(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("GetWithProfile", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", IsVerified: true, PlatformID: "987654321",
		Profile: &domain.Profile{UserID: "u1", Nickname: "ren"},
	}, nil)
	h := NewAccountHandler(svc, &mockVerificationSvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/dashboard", "u1", "s1", false, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Dashboard), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "987654321", resp["platform_id"])
}

// --- ChangePassword tests ---

func TestChangePassword_MissingClaims(t *testing.T) {
	h := NewAccountHandler(&mockAccountSvc{}, &mockVerificationSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/password/change", nil)
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePassword_ValidationFailure(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewAccountHandler(&mockAccountSvc{}, &mockVerificationSvc{})
	body, _ := json.Marshal(map[string]string{"current_password": "old"}) // missing new password

	r := bearerReq(t, p, http.MethodPost, "/v1/password/change", "u1", "s1", false, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.ChangePassword), rr, r)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("ChangePassword", mock.Anything, "u1", mock.Anything).Return(domain.ErrUnauthorized)
	h := NewAccountHandler(svc, &mockVerificationSvc{})
	body, _ := json.Marshal(domain.ChangePasswordRequest{
		CurrentPassword: "wrongpass", NewPassword: "newpass123", ConfirmNewPassword: "newpass123",
	})

	r := bearerReq(t, p, http.MethodPost, "/v1/password/change", "u1", "s1", false, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.ChangePassword), rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePassword_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("ChangePassword", mock.Anything, "u1", domain.ChangePasswordRequest{
		CurrentPassword: "oldpass12", NewPassword: "newpass123", ConfirmNewPassword: "newpass123",
	}).Return(nil)
	h := NewAccountHandler(svc, &mockVerificationSvc{})
	body, _ := json.Marshal(domain.ChangePasswordRequest{
		CurrentPassword: "oldpass12", NewPassword: "newpass123", ConfirmNewPassword: "newpass123",
	})

	r := bearerReq(t, p, http.MethodPost, "/v1/password/change", "u1", "s1", false, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.ChangePassword), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- Profile tests ---

func TestUpdateProfile_Partial(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("UpdateProfile", mock.Anything, "u1", mock.MatchedBy(func(req domain.UpdateProfileRequest) bool {
		return req.Nickname != nil && *req.Nickname == "ren" && req.Personalization == nil
	})).Return(&domain.Profile{UserID: "u1", Nickname: "ren"}, nil)
	h := NewAccountHandler(svc, &mockVerificationSvc{})
	body := []byte(`{"nickname":"ren"}`)

	r := bearerReq(t, p, http.MethodPatch, "/v1/profile", "u1", "s1", false, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.UpdateProfile), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- Admin tests ---

func TestAdminDelete(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("Delete", mock.Anything, "u2").Return(nil)
	h := NewAccountHandler(svc, &mockVerificationSvc{})

	r := bearerReq(t, p, http.MethodDelete, "/v1/users/u2", "admin1", "s1", true, nil)
	r = withChiID(r, "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.AdminDelete), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestList_PassesPagination(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("List", mock.Anything, 10, "abc").
		Return([]domain.User{{UserID: "u1"}}, "next", nil)
	h := NewAccountHandler(svc, &mockVerificationSvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/users?limit=10&cursor=abc", "admin1", "s1", true, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PaginatedUsersEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "next", resp.Cursor)
}
