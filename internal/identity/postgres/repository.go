// Package postgres provides PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/identity"
	"github.com/bissquit/job-garden/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, role, first_name, last_name, resume_url,
	is_verified, is_flagged, created_at, updated_at`

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a user. A duplicate email yields identity.ErrEmailExists.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, role, first_name, last_name, resume_url, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.FirstName,
		user.LastName,
		user.ResumeURL,
		user.IsVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return identity.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, query, id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.getUser(ctx, query, email)
}

// ListUsers lists users newest first.
func (r *Repository) ListUsers(ctx context.Context, filter identity.UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`

	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Flagged != nil {
		args = append(args, *filter.Flagged)
		conditions = append(conditions, fmt.Sprintf("is_flagged = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateProfile sets the non-nil profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id string, update identity.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			resume_url = COALESCE($4, resume_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return r.getUser(ctx, query, id, update.FirstName, update.LastName, update.ResumeURL)
}

// SetRole updates a user's role.
func (r *Repository) SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	query := `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return r.getUser(ctx, query, id, role)
}

// SetVerified updates a user's verified flag.
func (r *Repository) SetVerified(ctx context.Context, id string, verified bool) (*domain.User, error) {
	query := `UPDATE users SET is_verified = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return r.getUser(ctx, query, id, verified)
}

// SetFlagged updates a user's moderation flag.
func (r *Repository) SetFlagged(ctx context.Context, id string, flagged bool) (*domain.User, error) {
	query := `UPDATE users SET is_flagged = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return r.getUser(ctx, query, id, flagged)
}

// DeleteUser deletes a non-admin user. The role guard in the statement
// keeps the rule even if the row changed since it was authorized.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1 AND role <> 'admin'`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// SaveRefreshToken stores a refresh token hash.
func (r *Repository) SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves a refresh token by hash.
func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var token domain.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &token, nil
}

// DeleteRefreshToken deletes a refresh token by hash. Deleting a missing
// token yields identity.ErrInvalidToken so concurrent rotations of the same
// token cannot both succeed.
func (r *Repository) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrInvalidToken
	}
	return nil
}

// DeleteUserRefreshTokens revokes every session of a user.
func (r *Repository) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user refresh tokens: %w", err)
	}
	return nil
}

func (r *Repository) getUser(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.ResumeURL,
		&user.IsVerified,
		&user.IsFlagged,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
