package dto

import (
	"time"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

// RegisterRequest payload for self-service registration.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Username string `json:"username" form:"username" validate:"required,max=150"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UserResponse is the public part of a user record.
type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	IsVerified bool      `json:"is_verified"`
	IsStaff    bool      `json:"is_staff"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionResponse is returned on login.
type SessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Redirect  string          `json:"redirect"`
	User      UserResponse    `json:"user"`
	Profile   ProfileResponse `json:"profile"`
}

// NewUserResponse maps a user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		IsVerified: user.IsVerified,
		IsStaff:    user.IsStaff,
		CreatedAt:  user.CreatedAt,
	}
}
