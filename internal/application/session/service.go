package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/id"
	"github.com/go-accounts-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult carries the signed access token alongside the opaque refresh
// token and the session it belongs to.
type LoginResult struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Session      *domain.Session `json:"session"`
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentIdentity(ctx context.Context, sessionID string) (*domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenSigner interface {
	Sign(userID, sessionID string, isAdmin bool) (string, error)
}

type service struct {
	repo          sessionStore
	userRepo      userStore
	signer        tokenSigner
	refreshExpiry time.Duration
}

type ServiceDeps struct {
	SessionRepo   sessionStore
	UserRepo      userStore
	Signer        tokenSigner
	RefreshExpiry time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:          deps.SessionRepo,
		userRepo:      deps.UserRepo,
		signer:        deps.Signer,
		refreshExpiry: deps.RefreshExpiry,
	}
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password report the same message, so the response never confirms which
// half was wrong.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("account de-activated: %w", domain.ErrForbidden)
	}

	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(s.refreshExpiry).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Put(ctx, sess); err != nil {
		return nil, err
	}

	access, err := s.signer.Sign(u.UserID, sess.SessionID, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{AccessToken: access, RefreshToken: refresh, Session: sess}, nil
}

// Logout ends the session. Tokens bound to it stop resolving on the next
// authenticated call even if they have not expired yet.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Enable {
		return nil
	}
	return s.repo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

// CurrentIdentity resolves the session to its user, rejecting ended sessions
// and de-activated accounts.
func (s *service) CurrentIdentity(ctx context.Context, sessionID string) (*domain.User, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session ended: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("account de-activated: %w", domain.ErrUnauthorized)
	}
	return u, nil
}

// Refresh exchanges a live refresh token for a new access token and rotates
// the refresh token. The presented token is spent either way.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	sess, err := s.repo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if time.Now().Unix() >= sess.RefreshExpiresAt {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("account de-activated: %w", domain.ErrUnauthorized)
	}

	next, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := time.Now().UTC().Add(s.refreshExpiry).Unix()
	if err := s.repo.RotateRefreshToken(ctx, sess.SessionID, next, newExpiry); err != nil {
		return nil, err
	}

	access, err := s.signer.Sign(u.UserID, sess.SessionID, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	sess.RefreshToken = next
	sess.RefreshExpiresAt = newExpiry
	sess.User = u
	return &LoginResult{AccessToken: access, RefreshToken: next, Session: sess}, nil
}
