package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/service"
)

const refreshTokenCookie = "mailblast_refresh_token"

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// deviceInfo summarizes the calling client for the refresh credential row
func deviceInfo(r *http.Request) *string {
	ua := r.UserAgent()
	ip := getClientIP(r)
	info := strings.TrimSpace(ua + " " + ip)
	if info == "" {
		return nil
	}
	return &info
}

// --- Cookie helpers ---

// setTokenCookies sets the access token and refresh credential as HTTP-only
// cookies. The refresh cookie is locked to the refresh/logout path.
func (h *Handler) setTokenCookies(w http.ResponseWriter, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(h.cfg.Cookie.SameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: sameSite,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/api/auth",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: sameSite,
	})
}

// clearTokenCookies removes both auth cookies
func (h *Handler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeAuthResponse sets cookies and returns the user payload
func (h *Handler) writeAuthResponse(w http.ResponseWriter, status int, resp *service.AuthResponse) {
	h.setTokenCookies(w, resp.AccessToken, resp.RefreshToken,
		h.cfg.Security.Tokens.AccessTokenTTL, h.cfg.Security.Tokens.RefreshTokenTTL)
	writeJSON(w, status, map[string]interface{}{
		"user": resp.User,
	})
}

// --- Signup ---

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Name, email and password are required")
		return
	}
	req.DeviceInfo = deviceInfo(r)

	resp, err := h.authSvc.Signup(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			writeError(w, http.StatusConflict, "email_exists", "Email is already registered")
		case errors.Is(err, service.ErrPasswordTooWeak), errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.log.Error().Err(err).Msg("signup failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create account")
		}
		return
	}

	h.writeAuthResponse(w, http.StatusCreated, resp)
}

// --- Login ---

// Login handles password login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Email and password are required")
		return
	}
	req.DeviceInfo = deviceInfo(r)

	resp, err := h.authSvc.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		case errors.Is(err, service.ErrGoogleOnlyAccount):
			writeError(w, http.StatusBadRequest, "google_account", "This account uses Google sign-in")
		case errors.Is(err, service.ErrEmailNotVerified):
			writeError(w, http.StatusForbidden, "email_not_verified", "Please verify your email. A new verification link has been sent.")
		default:
			h.log.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Login failed")
		}
		return
	}

	h.writeAuthResponse(w, http.StatusOK, resp)
}

// --- Google sign-in ---

// GoogleSignIn handles sign-in with a delegated Google access token
func (h *Handler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req service.GoogleSignInRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	req.DeviceInfo = deviceInfo(r)

	resp, err := h.authSvc.GoogleSignIn(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, service.ErrPasswordOnlyAccount):
			writeError(w, http.StatusConflict, "password_account", "This email is registered with a password, log in instead")
		default:
			h.log.Error().Err(err).Msg("google sign-in failed")
			writeError(w, http.StatusUnauthorized, "google_auth_failed", "Google sign-in failed")
		}
		return
	}

	h.writeAuthResponse(w, http.StatusOK, resp)
}

// --- Refresh ---

// RefreshToken rotates the refresh credential and issues a new access token
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "missing_refresh_token", "Refresh token is required")
		return
	}

	userID, newOpaque, err := h.sessionSvc.ValidateAndRotate(r.Context(), cookie.Value)
	if err != nil {
		h.clearTokenCookies(w)
		switch {
		case errors.Is(err, service.ErrTokenRevoked):
			writeError(w, http.StatusUnauthorized, "token_revoked", "Refresh token has been revoked")
		case errors.Is(err, service.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "invalid_token", "Refresh token is invalid or expired")
		default:
			h.log.Error().Err(err).Msg("token refresh failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Token refresh failed")
		}
		return
	}

	resp, err := h.authSvc.IssueAccessFor(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Token refresh failed")
		return
	}

	h.setTokenCookies(w, resp.AccessToken, newOpaque,
		h.cfg.Security.Tokens.AccessTokenTTL, h.cfg.Security.Tokens.RefreshTokenTTL)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": resp.User,
	})
}

// --- Logout ---

// Logout revokes the presented refresh credential and clears cookies.
// Idempotent: logging out without a valid credential still succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		if err := h.sessionSvc.Revoke(r.Context(), cookie.Value); err != nil {
			h.log.Error().Err(err).Msg("failed to revoke refresh token on logout")
		}
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged out",
	})
}

// --- Email verification ---

// VerifyEmail consumes a verification token
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := readJSON(r, &req); err == nil {
			token = req.Token
		}
	}

	if err := h.authSvc.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, service.ErrVerificationExpired):
			writeError(w, http.StatusBadRequest, "invalid_verification", "Verification link is invalid or expired")
		default:
			h.log.Error().Err(err).Msg("email verification failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Verification failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Email verified",
	})
}

// ResendVerification sends a fresh verification email
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Email is required")
		return
	}

	if err := h.authSvc.ResendVerification(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "not_found", "No account with that email")
		case errors.Is(err, service.ErrResendCooldown):
			writeError(w, http.StatusTooManyRequests, "resend_cooldown", "Verification email was sent recently, try again later")
		default:
			h.log.Error().Err(err).Msg("resend verification failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to resend verification email")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Verification email sent",
	})
}
