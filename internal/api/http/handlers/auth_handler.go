package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/JKGhartey/task-manager-sub001/internal/api/dto"
	"github.com/JKGhartey/task-manager-sub001/internal/auth"
	"github.com/JKGhartey/task-manager-sub001/internal/service"
	apperrors "github.com/JKGhartey/task-manager-sub001/pkg/util"
)

const forgotPasswordMessage = "If an account exists for that email, a reset link has been sent."

// AuthHandler exposes the /auth endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.Envelope{
		Success: true,
		Message: "Registration successful. Please verify your email.",
		Data: dto.AuthResponse{
			User:                   res.User,
			Token:                  res.Token.Value,
			ExpiresAt:              res.Token.ExpiresAt,
			EmailVerificationToken: res.EmailVerificationToken,
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.Envelope{
		Success: true,
		Data:    dto.AuthResponse{User: res.User, Token: res.Token.Value, ExpiresAt: res.Token.ExpiresAt},
	})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Message: forgotPasswordMessage})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Password has been reset."})
}

// VerifyEmail handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.VerifyEmail(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Email verified."})
}

// ResendVerification handles POST /auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	principal, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.auth.ResendVerification(c.UserContext(), principal.User); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Verification email sent."})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Data: dto.UserResponse{User: principal.User}})
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.auth.UpdateProfile(c.UserContext(), principal.User, service.ProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Department: req.Department,
		Position:   req.Position,
		Avatar:     req.Avatar,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Data: dto.UserResponse{User: user}})
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.User, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Password changed."})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), principal.Claims); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Logged out."})
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(dst)
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}
