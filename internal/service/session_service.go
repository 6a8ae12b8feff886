package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailblast/mailblast/internal/auth"
	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

// Session service errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// RefreshTokenStore is the persistence surface the session service needs.
// Implemented by repository.TokenRepository.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByID(ctx context.Context, id string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionService manages the refresh credential lifecycle: issue, validate
// with rotation, revoke, and expiry cleanup. Credentials are opaque
// tokenId.secret strings; only a keyed hash of the secret is stored.
type SessionService struct {
	tokens RefreshTokenStore
	cfg    config.TokenConfig
	log    *logger.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(tokens RefreshTokenStore, cfg config.TokenConfig, log *logger.Logger) *SessionService {
	return &SessionService{
		tokens: tokens,
		cfg:    cfg,
		log:    log.WithComponent("session_service"),
	}
}

// Issue mints a fresh refresh credential for the user and returns the
// opaque string. The tokenId is the primary key, so a duplicate insert
// fails atomically instead of silently overwriting.
func (s *SessionService) Issue(ctx context.Context, userID string, deviceInfo *string) (string, error) {
	cred, err := auth.NewRefreshCredential(s.cfg.RefreshPepper)
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh credential: %w", err)
	}

	token := &model.RefreshToken{
		ID:         cred.TokenID,
		UserID:     userID,
		SecretHash: cred.SecretHash,
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().Add(s.cfg.RefreshTokenTTL),
		CreatedAt:  time.Now(),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store refresh credential: %w", err)
	}

	return cred.Opaque, nil
}

// ValidateAndRotate checks an opaque credential and, when valid, revokes it
// and issues a replacement. Returns the owner's userID and the new opaque
// string. Unknown, malformed, expired, revoked, and hash-mismatched
// credentials all fail; revocation wins over expiry in the error reported.
func (s *SessionService) ValidateAndRotate(ctx context.Context, opaque string) (string, string, error) {
	tokenID, secret, err := auth.ParseOpaque(opaque)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("failed to load refresh credential: %w", err)
	}

	if !auth.VerifyRefreshSecret(s.cfg.RefreshPepper, secret, token.SecretHash) {
		return "", "", ErrInvalidToken
	}
	if token.IsRevoked() {
		return "", "", ErrTokenRevoked
	}
	if token.IsExpired() {
		return "", "", ErrInvalidToken
	}

	// Rotate: the presented credential is single-use
	if err := s.tokens.Revoke(ctx, token.ID); err != nil {
		return "", "", fmt.Errorf("failed to revoke rotated credential: %w", err)
	}

	newOpaque, err := s.Issue(ctx, token.UserID, token.DeviceInfo)
	if err != nil {
		return "", "", err
	}

	return token.UserID, newOpaque, nil
}

// Revoke marks the credential revoked. Revoking an unknown or already
// revoked credential succeeds, so logout is idempotent.
func (s *SessionService) Revoke(ctx context.Context, opaque string) error {
	tokenID, _, err := auth.ParseOpaque(opaque)
	if err != nil {
		return nil
	}

	if err := s.tokens.Revoke(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke refresh credential: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active credential of a user
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user credentials: %w", err)
	}
	return nil
}

// RunCleanup deletes expired credentials every interval until ctx is done.
// Validation already treats expired rows as invalid, so the sweep only
// bounds table growth.
func (s *SessionService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.tokens.DeleteExpired(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("refresh token cleanup failed")
				continue
			}
			if deleted > 0 {
				s.log.Info().Int64("deleted", deleted).Msg("expired refresh tokens removed")
			}
		}
	}
}
