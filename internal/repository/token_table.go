package repository

import (
	"context"
	"fmt"
	"time"
)

// tokenRow is the shared shape of the single-use token tables.
type tokenRow struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

type tokenTable struct {
	db    DBTX
	table string
}

func (t tokenTable) create(ctx context.Context, row *tokenRow) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (user_id, token, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`, t.table)
	return t.db.QueryRow(ctx, query, row.UserID, row.Token, row.ExpiresAt).Scan(&row.ID, &row.CreatedAt)
}

func (t tokenTable) getByToken(ctx context.Context, token string) (*tokenRow, error) {
	query := fmt.Sprintf(`
        SELECT id, user_id, token, expires_at, used_at, created_at
        FROM %s WHERE token=$1`, t.table)
	var row tokenRow
	if err := t.db.QueryRow(ctx, query, token).Scan(
		&row.ID,
		&row.UserID,
		&row.Token,
		&row.ExpiresAt,
		&row.UsedAt,
		&row.CreatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &row, nil
}

// markUsed consumes the token; a token already used reports ErrNotFound.
func (t tokenTable) markUsed(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET used_at=NOW() WHERE id=$1 AND used_at IS NULL`, t.table)
	cmd, err := t.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// release undoes markUsed when the operation the token authorised failed.
func (t tokenTable) release(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET used_at=NULL WHERE id=$1`, t.table)
	_, err := t.db.Exec(ctx, query, id)
	return err
}

func (t tokenTable) invalidateForUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`UPDATE %s SET used_at=NOW() WHERE user_id=$1 AND used_at IS NULL`, t.table)
	_, err := t.db.Exec(ctx, query, userID)
	return err
}
