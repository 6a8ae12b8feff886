package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/model"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Postgres) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, is_verified, is_google_user,
		                   verification_token, verification_token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.IsGoogleUser,
		user.VerificationToken,
		user.VerificationTokenExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_verified, is_google_user,
		       verification_token, verification_token_expiry, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_verified, is_google_user,
		       verification_token, verification_token_expiry, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByVerificationToken retrieves a user by their pending verification token
func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_verified, is_google_user,
		       verification_token, verification_token_expiry, created_at, updated_at
		FROM users
		WHERE verification_token = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

// ExistsByEmail checks if a user with the given email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// UpdateName updates the user's display name
func (r *UserRepository) UpdateName(ctx context.Context, id string, name string) error {
	query := `UPDATE users SET name = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update name: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash updates the user's password hash
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerificationToken stores a fresh verification token on the user
func (r *UserRepository) SetVerificationToken(ctx context.Context, id string, token string, expiry time.Time) error {
	query := `
		UPDATE users
		SET verification_token = $1, verification_token_expiry = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, token, expiry, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkVerified marks the user as verified and clears the verification token
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET is_verified = true, verification_token = NULL,
		    verification_token_expiry = NULL, updated_at = $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkGoogleUser flags an existing account as Google-linked and verified
func (r *UserRepository) MarkGoogleUser(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET is_google_user = true, is_verified = true, updated_at = $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark google user: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertGoogleTokens stores or refreshes the user's delegated Gmail credential
func (r *UserRepository) UpsertGoogleTokens(ctx context.Context, tokens *model.GoogleTokens) error {
	query := `
		INSERT INTO google_tokens (user_id, access_token, scope, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    scope = EXCLUDED.scope,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		tokens.UserID,
		tokens.AccessToken,
		tokens.Scope,
		tokens.ExpiresAt,
		tokens.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert google tokens: %w", err)
	}
	return nil
}

// GetGoogleTokens retrieves the user's delegated Gmail credential
func (r *UserRepository) GetGoogleTokens(ctx context.Context, userID string) (*model.GoogleTokens, error) {
	query := `
		SELECT user_id, access_token, scope, expires_at, updated_at
		FROM google_tokens
		WHERE user_id = $1
	`
	var tokens model.GoogleTokens
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&tokens.UserID,
		&tokens.AccessToken,
		&tokens.Scope,
		&tokens.ExpiresAt,
		&tokens.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get google tokens: %w", err)
	}
	return &tokens, nil
}

// scanUser scans a single user row
func (r *UserRepository) scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.IsGoogleUser,
		&user.VerificationToken,
		&user.VerificationTokenExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
