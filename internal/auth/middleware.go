package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/repository"
	apperrors "github.com/JKGhartey/task-manager-sub001/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens  *TokenManager
	users   repository.UserRepository
	revoker Revoker
	logger  *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, revoker Revoker, logger *zap.Logger) *AuthMiddleware {
	if revoker == nil {
		revoker = NoopRevoker{}
	}
	return &AuthMiddleware{tokens: tokens, users: users, revoker: revoker, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	revoked, err := m.revoker.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		// Fail open when the denylist is unreachable.
		m.logger.Warn("revocation check failed", zap.Error(err))
	} else if revoked {
		return apperrors.NewUnauthorized("token revoked")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive() {
		return apperrors.NewUnauthorized("account is " + string(user.Status))
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return c.Next()
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
