package dto

import (
	"time"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Department string `json:"department" validate:"omitempty,max=100"`
	Position   string `json:"position" validate:"omitempty,max=100"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest payload for starting a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest payload for completing a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyEmailRequest payload for email verification.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// UpdateProfileRequest carries optional profile fields; omitted fields are unchanged.
type UpdateProfileRequest struct {
	FirstName  *string `json:"firstName" validate:"omitempty,max=100"`
	LastName   *string `json:"lastName" validate:"omitempty,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	Avatar     *string `json:"avatar" validate:"omitempty,max=2048"`
}

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// AuthResponse is the data of login and register responses.
type AuthResponse struct {
	User                   *domain.User `json:"user"`
	Token                  string       `json:"token"`
	ExpiresAt              time.Time    `json:"expiresAt"`
	EmailVerificationToken string       `json:"emailVerificationToken,omitempty"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// Envelope is the response body of every API call.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Errors  map[string]any `json:"errors,omitempty"`
}
