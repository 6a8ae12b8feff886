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

// TokenRepository handles refresh credential persistence
type TokenRepository struct {
	db *database.Postgres
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *database.Postgres) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a new refresh credential. The id is the primary key, so a
// colliding tokenId fails atomically with ErrDuplicate.
func (r *TokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, secret_hash, device_info, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.SecretHash,
		token.DeviceInfo,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// GetByID retrieves a refresh credential by its tokenId
func (r *TokenRepository) GetByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	query := `
		SELECT id, user_id, secret_hash, device_info, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE id = $1
	`
	var token model.RefreshToken
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&token.ID,
		&token.UserID,
		&token.SecretHash,
		&token.DeviceInfo,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &token, nil
}

// Revoke marks a refresh credential as revoked. Revoking an already revoked
// credential is a no-op.
func (r *TokenRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active refresh credential of a user
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes refresh credentials past their expiry
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
