package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, department, position, avatar,
        role, status, is_email_verified, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash, first_name, last_name, phone, department, position, avatar, role, status, is_email_verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		domain.NormalizeEmail(user.Email),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Department,
		user.Position,
		user.Avatar,
		string(user.Role),
		string(user.Status),
		user.IsEmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, phone=$3, department=$4, position=$5, avatar=$6,
        role=$7, status=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Department,
		user.Position,
		user.Avatar,
		string(user.Role),
		string(user.Status),
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return mapNoRows(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=$1`
	return scanUser(r.db.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET is_email_verified=TRUE, updated_at=NOW() WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user   domain.User
		role   string
		status string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Department,
		&user.Position,
		&user.Avatar,
		&role,
		&status,
		&user.IsEmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}

	var err error
	if user.Role, err = domain.ParseRole(role); err != nil {
		return nil, err
	}
	if user.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	return &user, nil
}
