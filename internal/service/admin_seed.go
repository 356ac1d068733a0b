package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/auth"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/repository"
)

// AdminInput describes the bootstrap administrator account.
type AdminInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureAdmin creates the administrator, or promotes and reactivates an existing
// account with the same email. A non-empty password replaces the current one.
// It reports whether a new account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, in AdminInput) (*domain.User, bool, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, false, errors.New("admin email is required")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if len(in.Password) < auth.MinPasswordLength {
			return nil, false, fmt.Errorf("admin password must be at least %d characters", auth.MinPasswordLength)
		}
		hash, err := auth.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, false, fmt.Errorf("hash password: %w", err)
		}
		user := &domain.User{
			Email:           email,
			FirstName:       orDefault(in.FirstName, "System"),
			LastName:        orDefault(in.LastName, "Administrator"),
			Role:            domain.RoleAdmin,
			Status:          domain.StatusActive,
			IsEmailVerified: true,
			PasswordHash:    hash,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("create admin: %w", err)
		}
		s.logger.Info("admin account created", zap.String("user_id", user.ID))
		return user, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup admin: %w", err)
	}

	existing.Role = domain.RoleAdmin
	existing.Status = domain.StatusActive
	if err := s.users.Update(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("promote admin: %w", err)
	}
	if in.Password != "" {
		if len(in.Password) < auth.MinPasswordLength {
			return nil, false, fmt.Errorf("admin password must be at least %d characters", auth.MinPasswordLength)
		}
		hash, err := auth.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, false, fmt.Errorf("hash password: %w", err)
		}
		if err := s.users.UpdatePassword(ctx, existing.ID, hash); err != nil {
			return nil, false, fmt.Errorf("set admin password: %w", err)
		}
	}
	s.logger.Info("admin account promoted", zap.String("user_id", existing.ID))
	return existing, false, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}
