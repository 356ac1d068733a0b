package repository

import (
	"context"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

// EmailVerificationRepository manages email verification token persistence.
type EmailVerificationRepository interface {
	Create(ctx context.Context, token *domain.EmailVerificationToken) error
	GetByToken(ctx context.Context, token string) (*domain.EmailVerificationToken, error)
	MarkUsed(ctx context.Context, id string) error
	InvalidateForUser(ctx context.Context, userID string) error
}

type emailVerificationRepository struct {
	tokens tokenTable
}

// NewEmailVerificationRepository constructs repository.
func NewEmailVerificationRepository(db DBTX) EmailVerificationRepository {
	return &emailVerificationRepository{tokens: tokenTable{db: db, table: "email_verification_tokens"}}
}

func (r *emailVerificationRepository) Create(ctx context.Context, token *domain.EmailVerificationToken) error {
	row := &tokenRow{UserID: token.UserID, Token: token.Token, ExpiresAt: token.ExpiresAt}
	if err := r.tokens.create(ctx, row); err != nil {
		return err
	}
	token.ID, token.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (r *emailVerificationRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.EmailVerificationToken, error) {
	row, err := r.tokens.getByToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	return &domain.EmailVerificationToken{
		ID:        row.ID,
		UserID:    row.UserID,
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt,
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *emailVerificationRepository) MarkUsed(ctx context.Context, id string) error {
	return r.tokens.markUsed(ctx, id)
}

func (r *emailVerificationRepository) InvalidateForUser(ctx context.Context, userID string) error {
	return r.tokens.invalidateForUser(ctx, userID)
}
