package repository

import (
	"context"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

// PasswordResetRepository manages password reset token persistence.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *domain.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
	InvalidateForUser(ctx context.Context, userID string) error
}

type passwordResetRepository struct {
	tokens tokenTable
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(db DBTX) PasswordResetRepository {
	return &passwordResetRepository{tokens: tokenTable{db: db, table: "password_reset_tokens"}}
}

func (r *passwordResetRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	row := &tokenRow{UserID: token.UserID, Token: token.Token, ExpiresAt: token.ExpiresAt}
	if err := r.tokens.create(ctx, row); err != nil {
		return err
	}
	token.ID, token.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	row, err := r.tokens.getByToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	return &domain.PasswordResetToken{
		ID:        row.ID,
		UserID:    row.UserID,
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt,
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	return r.tokens.markUsed(ctx, id)
}

func (r *passwordResetRepository) Release(ctx context.Context, id string) error {
	return r.tokens.release(ctx, id)
}

func (r *passwordResetRepository) InvalidateForUser(ctx context.Context, userID string) error {
	return r.tokens.invalidateForUser(ctx, userID)
}
