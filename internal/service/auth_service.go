package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mailblast/mailblast/internal/auth"
	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/email"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

// Common service errors
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailAlreadyExists  = errors.New("email already registered")
	ErrPasswordTooWeak     = errors.New("password does not meet requirements")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailNotVerified    = errors.New("email is not verified")
	ErrGoogleOnlyAccount   = errors.New("account uses Google sign-in")
	ErrPasswordOnlyAccount = errors.New("account uses password sign-in")
	ErrVerificationExpired = errors.New("verification link is invalid or expired")
	ErrResendCooldown      = errors.New("verification email was sent recently, try again later")
)

// GoogleVerifier resolves a Google access token to the identity it belongs
// to. Implemented by auth.GoogleClient against the userinfo endpoint.
type GoogleVerifier interface {
	Verify(ctx context.Context, accessToken string) (email, name string, err error)
}

// AuthService handles signup, login, Google sign-in and email verification
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionSvc  *SessionService
	tokenSvc    *auth.TokenService
	google      GoogleVerifier
	systemMail  email.Sender
	rdb         *database.Redis
	argonParams *auth.Argon2Params
	cfg         *config.Config
	log         *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo *repository.UserRepository,
	sessionSvc *SessionService,
	tokenSvc *auth.TokenService,
	google GoogleVerifier,
	systemMail email.Sender,
	rdb *database.Redis,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		sessionSvc: sessionSvc,
		tokenSvc:   tokenSvc,
		google:     google,
		systemMail: systemMail,
		rdb:        rdb,
		argonParams: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("auth_service"),
	}
}

// SignupRequest contains the data for registering a new user
type SignupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo *string
}

// AuthResponse carries the issued credentials. The handler moves both
// tokens into cookies and never echoes the refresh credential in the body.
type AuthResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"-"`
	RefreshToken string      `json:"-"`
}

// Signup creates a new user account and sends the verification email
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := auth.ValidateEmail(req.Email); err != nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrInvalidInput, err.Error())
	}
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	passwordHash, err := auth.HashPassword(req.Password, s.argonParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	verifyToken := generateToken()
	verifyExpiry := now.Add(s.cfg.Verification.TokenTTL)

	user := &model.User{
		ID:                      generateID("usr"),
		Name:                    strings.TrimSpace(req.Name),
		Email:                   emailAddr,
		PasswordHash:            &passwordHash,
		IsVerified:              false,
		VerificationToken:       &verifyToken,
		VerificationTokenExpiry: &verifyExpiry,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerificationEmail(ctx, user, verifyToken)

	s.log.Info().Str("user_id", user.ID).Str("email", emailAddr).Msg("user registered")

	return s.issueCredentials(ctx, user, req.DeviceInfo)
}

// LoginRequest contains the data for logging in
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo *string
}

// Login authenticates a user with email and password
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrGoogleOnlyAccount
	}

	ok, err := auth.VerifyPassword(req.Password, *user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		// Refresh the verification link so the user can complete signup
		if err := s.refreshVerification(ctx, user); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to refresh verification")
		}
		return nil, ErrEmailNotVerified
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")

	return s.issueCredentials(ctx, user, req.DeviceInfo)
}

// GoogleSignInRequest contains the delegated Google credential posted by
// the frontend after the OAuth consent flow.
type GoogleSignInRequest struct {
	AccessToken string `json:"accessToken"`
	Scope       string `json:"scope"`
	DeviceInfo  *string
}

// GoogleSignIn signs a user in (or up) with a Google access token. The
// delegated token is stored so mass mail can be sent as the user.
func (s *AuthService) GoogleSignIn(ctx context.Context, req GoogleSignInRequest) (*AuthResponse, error) {
	if req.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", repository.ErrInvalidInput)
	}

	googleEmail, googleName, err := s.google.Verify(ctx, req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("google sign-in failed: %w", err)
	}
	emailAddr := strings.ToLower(strings.TrimSpace(googleEmail))

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		now := time.Now()
		user = &model.User{
			ID:           generateID("usr"),
			Name:         googleName,
			Email:        emailAddr,
			IsVerified:   true,
			IsGoogleUser: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.log.Info().Str("user_id", user.ID).Msg("google user registered")
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	default:
		if !user.IsGoogleUser {
			return nil, ErrPasswordOnlyAccount
		}
	}

	tokens := &model.GoogleTokens{
		UserID:      user.ID,
		AccessToken: req.AccessToken,
		Scope:       req.Scope,
		ExpiresAt:   time.Now().Add(time.Hour),
		UpdatedAt:   time.Now(),
	}
	if err := s.userRepo.UpsertGoogleTokens(ctx, tokens); err != nil {
		return nil, fmt.Errorf("failed to store google tokens: %w", err)
	}

	return s.issueCredentials(ctx, user, req.DeviceInfo)
}

// VerifyEmail consumes a verification token and marks the user verified
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrVerificationExpired
	}

	user, err := s.userRepo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVerificationExpired
		}
		return fmt.Errorf("failed to look up verification token: %w", err)
	}

	if user.VerificationTokenExpiry == nil || time.Now().After(*user.VerificationTokenExpiry) {
		return ErrVerificationExpired
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// ResendVerification sends a fresh verification mail, rate limited per
// address with a Redis cooldown key.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsVerified {
		return nil
	}

	cooldownKey := "verify:resend:" + user.ID
	exists, err := s.rdb.Exists(ctx, cooldownKey)
	if err == nil && exists > 0 {
		return ErrResendCooldown
	}

	if err := s.refreshVerification(ctx, user); err != nil {
		return err
	}

	if err := s.rdb.SetWithTTL(ctx, cooldownKey, "1", s.cfg.Verification.ResendCooldown); err != nil {
		s.log.Error().Err(err).Msg("failed to set resend cooldown")
	}
	return nil
}

// refreshVerification rotates the stored verification token and sends mail
func (s *AuthService) refreshVerification(ctx context.Context, user *model.User) error {
	token := generateToken()
	expiry := time.Now().Add(s.cfg.Verification.TokenTTL)

	if err := s.userRepo.SetVerificationToken(ctx, user.ID, token, expiry); err != nil {
		return fmt.Errorf("failed to rotate verification token: %w", err)
	}

	s.sendVerificationEmail(ctx, user, token)
	return nil
}

// sendVerificationEmail delivers the verification link through the system
// sender. Failures are logged; signup never fails on mail delivery.
func (s *AuthService) sendVerificationEmail(ctx context.Context, user *model.User, token string) {
	if s.systemMail == nil {
		s.log.Warn().Msg("system mail sender not configured, skipping verification email")
		return
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.Verification.FrontendURL, token)
	ttlMinutes := int(s.cfg.Verification.TokenTTL.Minutes())

	msg := email.Message{
		To:       user.Email,
		Subject:  fmt.Sprintf("Verify your %s email", s.cfg.Email.AppName),
		HTMLBody: email.VerificationEmailHTML(link, s.cfg.Email.AppName, ttlMinutes),
		TextBody: email.VerificationEmailText(link, s.cfg.Email.AppName, ttlMinutes),
	}

	if err := s.systemMail.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send verification email")
	}
}

// IssueAccessFor mints a fresh access token for an already authenticated
// user. Used after refresh credential rotation.
func (s *AuthService) IssueAccessFor(ctx context.Context, userID string) (*AuthResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{User: user, AccessToken: accessToken}, nil
}

// issueCredentials mints the access token and refresh credential pair
func (s *AuthService) issueCredentials(ctx context.Context, user *model.User, deviceInfo *string) (*AuthResponse, error) {
	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.sessionSvc.Issue(ctx, user.ID, deviceInfo)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// generateID creates a prefixed identifier from a uuid
func generateID(prefix string) string {
	id := uuid.New().String()
	// Remove hyphens and take first 26 chars to fit varchar(32) with prefix
	clean := strings.ReplaceAll(id, "-", "")
	if len(prefix) > 0 {
		return prefix + "_" + clean[:min(26, len(clean))]
	}
	return clean
}

// generateToken creates a 32-byte random hex token
func generateToken() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	}
	return hex.EncodeToString(raw)
}
