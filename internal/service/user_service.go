package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailblast/mailblast/internal/auth"
	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

// UserService handles profile reads and updates
type UserService struct {
	userRepo    *repository.UserRepository
	sessionSvc  *SessionService
	argonParams *auth.Argon2Params
	cfg         *config.Config
	log         *logger.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo *repository.UserRepository,
	sessionSvc *SessionService,
	cfg *config.Config,
	log *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		sessionSvc: sessionSvc,
		argonParams: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("user_service"),
	}
}

// GetByID returns a user without secret material
func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateName changes the user's display name
func (s *UserService) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", repository.ErrInvalidInput)
	}

	if err := s.userRepo.UpdateName(ctx, userID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update name: %w", err)
	}

	return s.GetByID(ctx, userID)
}

// ChangePassword verifies the current password and sets a new one. Every
// other refresh credential of the user is revoked afterwards.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return ErrGoogleOnlyAccount
	}

	ok, err := auth.VerifyPassword(currentPassword, *user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if err := auth.ValidatePassword(newPassword, s.cfg.Security.Password.MinLength); err != nil {
		return fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	hash, err := auth.HashPassword(newPassword, s.argonParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessionSvc.RevokeAllForUser(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to revoke sessions after password change")
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}
