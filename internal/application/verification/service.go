package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/infrastructure/smtp"
	"github.com/go-accounts-api/internal/pkg/id"
	pkgotp "github.com/go-accounts-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// IssueResult reports the outcome of an issue flow. Delivered is false when
// the code row was persisted but the notification could not be sent; the
// caller still answers with a generic success so the response body never
// reveals whether the email is registered.
type IssueResult struct {
	Delivered bool
}

type Service interface {
	RequestVerification(ctx context.Context, email string) (*IssueResult, error)
	VerifyEmail(ctx context.Context, email, code string) error
	RequestPasswordReset(ctx context.Context, email string) (*IssueResult, error)
	ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error
}

type otpStore interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	LatestUnused(ctx context.Context, email string) (*domain.OneTimeCode, error)
	ConsumeAndApply(ctx context.Context, email, otpID, userID string, effect map[string]interface{}) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type service struct {
	otpRepo   otpStore
	userRepo  userStore
	mailer    smtp.Mailer
	otpLength int
	otpTTL    time.Duration
}

func NewService(otpRepo otpStore, userRepo userStore, mailer smtp.Mailer, otpLength int, otpTTL time.Duration) Service {
	return &service{
		otpRepo:   otpRepo,
		userRepo:  userRepo,
		mailer:    mailer,
		otpLength: otpLength,
		otpTTL:    otpTTL,
	}
}

// RequestVerification issues a fresh verification code for an unverified
// account. Outstanding earlier codes stay valid — only ledger ordering decides
// which one a consume call sees.
func (s *service) RequestVerification(ctx context.Context, email string) (*IssueResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if u.IsVerified {
		return nil, fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}
	return s.issue(ctx, email, s.mailer.SendVerificationCode)
}

// RequestPasswordReset issues a reset code. An unknown email is treated as
// success with nothing issued, so the response cannot be used to enumerate
// accounts.
func (s *service) RequestPasswordReset(ctx context.Context, email string) (*IssueResult, error) {
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		slog.Debug("password reset requested for unknown email", "email", email)
		return &IssueResult{Delivered: false}, nil
	}
	return s.issue(ctx, email, s.mailer.SendPasswordResetCode)
}

func (s *service) issue(ctx context.Context, email string, send func(to, code string) error) (*IssueResult, error) {
	code, err := pkgotp.GenerateCode(s.otpLength)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := &domain.OneTimeCode{
		Email:     email,
		OTPID:     id.New(),
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.otpTTL).Unix(),
		Used:      false,
	}
	if err := s.otpRepo.Put(ctx, row); err != nil {
		return nil, err
	}
	// The row is committed at this point. A failed delivery leaves it valid
	// and unused; the next request simply issues another code.
	if err := send(email, code); err != nil {
		slog.Warn("one-time code delivery failed", "email", email, "err", err)
		return &IssueResult{Delivered: false}, nil
	}
	return &IssueResult{Delivered: true}, nil
}

// VerifyEmail consumes the latest unused code for the email and flips the
// account to verified. Mark-used and the flag update commit in one
// transaction.
func (s *service) VerifyEmail(ctx context.Context, email, code string) error {
	row, err := s.match(ctx, email, code)
	if err != nil {
		return err
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return s.otpRepo.ConsumeAndApply(ctx, email, row.OTPID, u.UserID, map[string]interface{}{
		"is_verified": true,
	})
}

// ResetPassword consumes the latest unused code and replaces the account's
// password hash in the same transaction.
func (s *service) ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", domain.ErrBadRequest)
	}
	if newPassword != confirmPassword {
		return fmt.Errorf("passwords do not match: %w", domain.ErrBadRequest)
	}
	row, err := s.match(ctx, email, code)
	if err != nil {
		return err
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.otpRepo.ConsumeAndApply(ctx, email, row.OTPID, u.UserID, map[string]interface{}{
		"password_hash": string(hash),
	})
}

// match finds the latest unused row and checks expiry and code equality.
// A wrong code leaves the row untouched so a correct retry can still succeed.
func (s *service) match(ctx context.Context, email, code string) (*domain.OneTimeCode, error) {
	row, err := s.otpRepo.LatestUnused(ctx, email)
	if err != nil {
		return nil, err
	}
	// LatestUnused already filters used rows, so an invalid row here can only
	// mean the expiry has passed.
	if !row.IsValid(time.Now()) {
		return nil, fmt.Errorf("code expired: %w", domain.ErrExpired)
	}
	if row.Code != code {
		return nil, fmt.Errorf("incorrect code: %w", domain.ErrUnauthorized)
	}
	return row, nil
}
