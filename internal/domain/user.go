package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	PlatformID   string    `json:"platform_id" dynamodbav:"platform_id"`
	IsVerified   bool      `json:"is_verified" dynamodbav:"is_verified"`
	IsActive     bool      `json:"is_active" dynamodbav:"is_active"`
	IsAdmin      bool      `json:"is_admin" dynamodbav:"is_admin"`
	JoinedAt     time.Time `json:"joined_at" dynamodbav:"joined_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
	Profile      *Profile  `json:"profile,omitempty" dynamodbav:"-"`
}

type CreateUserRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required,eqfield=NewPassword"`
}
