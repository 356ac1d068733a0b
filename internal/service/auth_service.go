package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/auth"
	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/events"
	"github.com/JKGhartey/task-manager-sub001/internal/observability"
	"github.com/JKGhartey/task-manager-sub001/internal/repository"
	apperrors "github.com/JKGhartey/task-manager-sub001/pkg/util"
)

// AuthService coordinates registration, login and account recovery flows.
type AuthService struct {
	users         repository.UserRepository
	resets        repository.PasswordResetRepository
	verifications repository.EmailVerificationRepository
	revoker       auth.Revoker
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	tokenMgr      *auth.TokenManager
	bcryptCost    int
	resetTTL      time.Duration
	verifyTTL     time.Duration
	phoneRegion   string
	now           func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo              repository.UserRepository
	PasswordResetRepo     repository.PasswordResetRepository
	EmailVerificationRepo repository.EmailVerificationRepository
	Revoker               auth.Revoker
	Dispatcher            events.Dispatcher
	Metrics               *observability.Metrics
	Logger                *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	revoker := deps.Revoker
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:         deps.UserRepo,
		resets:        deps.PasswordResetRepo,
		verifications: deps.EmailVerificationRepo,
		revoker:       revoker,
		dispatcher:    dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		tokenMgr:      auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		bcryptCost:    cfg.BcryptCost,
		resetTTL:      cfg.PasswordResetTTL(),
		verifyTTL:     cfg.EmailVerificationTTL(),
		phoneRegion:   cfg.PhoneRegion,
		now:           time.Now,
	}
}

// RegisterInput carries signup fields.
type RegisterInput struct {
	FirstName  string
	LastName   string
	Email      string
	Password   string
	Phone      string
	Department string
	Position   string
}

// ProfileInput carries optional profile changes; nil fields are left untouched.
type ProfileInput struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Department *string
	Position   *string
	Avatar     *string
}

// AuthResult is returned by flows that start a session.
type AuthResult struct {
	User                   *domain.User
	Token                  auth.IssuedToken
	EmailVerificationToken string
}

// Register creates a new account with the default user role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	phone, err := domain.NormalizePhone(in.Phone, s.phoneRegion)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid phone number", map[string]any{"phone": "must be a valid phone number"})
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        phone,
		Department:   strings.TrimSpace(in.Department),
		Position:     strings.TrimSpace(in.Position),
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.metrics.RecordAuth("register", "failure")
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": "already registered"})
		}
		return nil, apperrors.MapError(err)
	}

	var verificationToken string
	if verification, err := s.issueVerification(ctx, user); err != nil {
		s.logger.Warn("verification token not issued", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		verificationToken = verification.Token
	}

	token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.AccountPayload{Email: user.Email, FirstName: user.FirstName})
	s.metrics.RecordAuth("register", "success")
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token, EmailVerificationToken: verificationToken}, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordAuth("login", "failure")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.metrics.RecordAuth("login", "failure")
		return nil, apperrors.NewInvalidCredentials()
	}
	if !user.IsActive() {
		s.metrics.RecordAuth("login", "blocked")
		return nil, apperrors.NewForbidden("account is " + string(user.Status))
	}

	token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.metrics.RecordAuth("login", "success")
	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// RequestPasswordReset issues a reset token when the email belongs to an account.
// Unknown emails succeed silently so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("password reset for unknown email")
			return nil
		}
		return apperrors.MapError(err)
	}

	if err := s.resets.InvalidateForUser(ctx, user.ID); err != nil {
		return apperrors.MapError(err)
	}
	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.EventPasswordResetRequested, user.ID,
		events.TokenPayload{Email: user.Email, Token: token.Token, ExpiresAt: token.ExpiresAt})
	return nil
}

// ResetPassword validates the reset token and updates the password.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInvalidOrExpiredToken("invalid or expired reset token")
		}
		return apperrors.MapError(err)
	}
	if !token.Usable(s.now()) {
		return apperrors.NewInvalidOrExpiredToken("invalid or expired reset token")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	// The claim keeps a token single-use under concurrent redemption and
	// is released again if the password write fails.
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInvalidOrExpiredToken("invalid or expired reset token")
		}
		return apperrors.MapError(err)
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
		if relErr := s.resets.Release(ctx, token.ID); relErr != nil {
			s.logger.Warn("reset token release failed", zap.String("token_id", token.ID), zap.Error(relErr))
		}
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.EventPasswordChanged, token.UserID, nil)
	return nil
}

// VerifyEmail consumes a verification token and marks the owner verified.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) error {
	token, err := s.verifications.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInvalidOrExpiredToken("invalid or expired verification token")
		}
		return apperrors.MapError(err)
	}
	if !token.Usable(s.now()) {
		return apperrors.NewInvalidOrExpiredToken("invalid or expired verification token")
	}
	if err := s.verifications.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInvalidOrExpiredToken("invalid or expired verification token")
		}
		return apperrors.MapError(err)
	}
	if err := s.users.MarkEmailVerified(ctx, token.UserID); err != nil {
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.EventEmailVerified, token.UserID, nil)
	return nil
}

// ResendVerification replaces any outstanding verification token for user.
func (s *AuthService) ResendVerification(ctx context.Context, user *domain.User) error {
	if user.IsEmailVerified {
		return apperrors.NewValidationError("email already verified", nil)
	}
	if err := s.verifications.InvalidateForUser(ctx, user.ID); err != nil {
		return apperrors.MapError(err)
	}
	_, err := s.issueVerification(ctx, user)
	return err
}

// UpdateProfile applies profile changes and returns the stored user.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, in ProfileInput) (*domain.User, error) {
	updated := user.Clone()
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&updated.FirstName, in.FirstName)
	apply(&updated.LastName, in.LastName)
	apply(&updated.Department, in.Department)
	apply(&updated.Position, in.Position)
	apply(&updated.Avatar, in.Avatar)
	if in.Phone != nil {
		phone, err := domain.NormalizePhone(*in.Phone, s.phoneRegion)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid phone number", map[string]any{"phone": "must be a valid phone number"})
		}
		updated.Phone = phone
	}
	if updated.FirstName == "" || updated.LastName == "" {
		return nil, apperrors.NewValidationError("first and last name are required", nil)
	}

	if err := s.users.Update(ctx, updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error {
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewInvalidCredentials()
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issueVerification(ctx context.Context, user *domain.User) (*domain.EmailVerificationToken, error) {
	token := &domain.EmailVerificationToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.verifyTTL),
	}
	if err := s.verifications.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventEmailVerificationRequested, user.ID,
		events.TokenPayload{Email: user.Email, Token: token.Token, ExpiresAt: token.ExpiresAt})
	return token, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
