package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-accounts-api/internal/application/session"
	"github.com/go-accounts-api/internal/application/verification"
	"github.com/go-accounts-api/internal/config"
	"github.com/go-accounts-api/internal/domain"
	jwtinfra "github.com/go-accounts-api/internal/infrastructure/jwt"
	"github.com/go-accounts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- service mocks ---

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) GetWithProfile(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	args := m.Called(ctx, userID, req)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func (m *mockAccountSvc) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAccountSvc) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]domain.User), args.String(1), args.Error(2)
}

func (m *mockAccountSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) UploadAvatar(ctx context.Context, userID, filename string, r io.Reader) error {
	return m.Called(ctx, userID, filename, r).Error(0)
}

func (m *mockAccountSvc) AvatarURL(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) RequestVerification(ctx context.Context, email string) (*verification.IssueResult, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*verification.IssueResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) VerifyEmail(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *mockVerificationSvc) RequestPasswordReset(ctx context.Context, email string) (*verification.IssueResult, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*verification.IssueResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error {
	return m.Called(ctx, email, code, newPassword, confirmPassword).Error(0)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Login(ctx context.Context, req domain.LoginRequest) (*session.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*session.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockSessionSvc) CurrentIdentity(ctx context.Context, sessionID string) (*domain.User, error) {
	args := m.Called(ctx, sessionID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Refresh(ctx context.Context, refreshToken string) (*session.LoginResult, error) {
	args := m.Called(ctx, refreshToken)
	if r, _ := args.Get(0).(*session.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given user and session.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, sessionID string, isAdmin bool, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, sessionID, isAdmin)
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}
