package account

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-accounts-api/internal/domain"
	s3infra "github.com/go-accounts-api/internal/infrastructure/s3"
	"github.com/go-accounts-api/internal/pkg/id"
	"github.com/go-accounts-api/internal/pkg/platformid"
	"golang.org/x/crypto/bcrypt"
)

// Collision retries when minting a platform id. The id space is large enough
// that more than one retry is already suspicious.
const maxPlatformIDAttempts = 5

const avatarURLTTL = 15 * time.Minute

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	GetWithProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UploadAvatar(ctx context.Context, userID, filename string, r io.Reader) error
	AvatarURL(ctx context.Context, userID string) (string, error)
}

type userStore interface {
	CreateWithProfile(ctx context.Context, u *domain.User, p *domain.Profile) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPlatformID(ctx context.Context, platformID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	DeleteWithProfile(ctx context.Context, userID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	DisableByUser(ctx context.Context, userID string) error
}

type avatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo        userStore
	profileRepo profileStore
	sessionRepo sessionStore
	avatars     avatarStore
}

type ServiceDeps struct {
	UserRepo    userStore
	ProfileRepo profileStore
	SessionRepo sessionStore
	Avatars     avatarStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.UserRepo,
		profileRepo: deps.ProfileRepo,
		sessionRepo: deps.SessionRepo,
		avatars:     deps.Avatars,
	}
}

// Register creates the identity and its empty profile in one transaction.
// Validation failures happen before any store write, so a rejected request
// never leaves a partial account behind.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("passwords do not match: %w", domain.ErrBadRequest)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	pid, err := s.mintPlatformID(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		PlatformID:   pid,
		IsVerified:   false,
		IsActive:     true,
		IsAdmin:      false,
		JoinedAt:     now,
		UpdatedAt:    now,
	}
	p := &domain.Profile{
		UserID:          u.UserID,
		Personalization: map[string]interface{}{},
	}
	if err := s.repo.CreateWithProfile(ctx, u, p); err != nil {
		return nil, err
	}
	u.Profile = p
	return u, nil
}

func (s *service) mintPlatformID(ctx context.Context) (string, error) {
	for i := 0; i < maxPlatformIDAttempts; i++ {
		pid, err := platformid.Generate()
		if err != nil {
			return "", err
		}
		if _, err := s.repo.GetByPlatformID(ctx, pid); err != nil {
			return pid, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique platform id")
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) GetWithProfile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Profile = p
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	updates := map[string]interface{}{}
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Personalization != nil {
		updates["personalization_questions"] = req.Personalization
	}
	if len(updates) == 0 {
		return s.profileRepo.Get(ctx, userID)
	}
	if err := s.profileRepo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.profileRepo.Get(ctx, userID)
}

// ChangePassword replaces the credential directly after proving knowledge of
// the current one. No OTP involved on this path.
func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmNewPassword {
		return fmt.Errorf("passwords do not match: %w", domain.ErrBadRequest)
	}
	if len(req.NewPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

// Delete removes the identity and cascades to its profile, then ends all of
// the user's sessions. The avatar object is best-effort cleanup.
func (s *service) Delete(ctx context.Context, userID string) error {
	p, perr := s.profileRepo.Get(ctx, userID)
	if err := s.repo.DeleteWithProfile(ctx, userID); err != nil {
		return err
	}
	if perr == nil && p.AvatarKey != "" {
		if err := s.avatars.Delete(ctx, p.AvatarKey); err != nil {
			slog.Warn("failed to delete avatar object", "user_id", userID, "err", err)
		}
	}
	return s.sessionRepo.DisableByUser(ctx, userID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) UploadAvatar(ctx context.Context, userID, filename string, r io.Reader) error {
	contentType := s3infra.DetectContentType(filename)
	if contentType == "application/octet-stream" {
		return fmt.Errorf("avatar must be a jpeg or png: %w", domain.ErrBadRequest)
	}
	key := fmt.Sprintf("avatars/%s", userID)
	if _, err := s.avatars.Upload(ctx, key, r, contentType); err != nil {
		return err
	}
	return s.profileRepo.Update(ctx, userID, map[string]interface{}{"avatar_key": key})
}

func (s *service) AvatarURL(ctx context.Context, userID string) (string, error) {
	p, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.AvatarKey == "" {
		return "", fmt.Errorf("no avatar set: %w", domain.ErrNotFound)
	}
	return s.avatars.PresignedURL(ctx, p.AvatarKey, avatarURLTTL)
}
