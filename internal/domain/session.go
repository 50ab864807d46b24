package domain

import "time"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Session struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"refresh_expires_at" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
	User             *User     `json:"user,omitempty" dynamodbav:"-"`
}
