package handler

import (
	"errors"
	"net/http"

	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/service"
)

// GetCurrentUser returns the authenticated user's profile
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userSvc.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "User not found")
			return
		}
		h.log.Error().Err(err).Msg("failed to load current user")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}

// UpdateName changes the authenticated user's display name
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	user, err := h.userSvc.UpdateName(r.Context(), userID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "validation_error", "Name is required")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "not_found", "User not found")
		default:
			h.log.Error().Err(err).Msg("failed to update name")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update name")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}

// ChangePassword changes the authenticated user's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Current and new password are required")
		return
	}

	err := h.userSvc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Current password is incorrect")
		case errors.Is(err, service.ErrGoogleOnlyAccount):
			writeError(w, http.StatusBadRequest, "google_account", "This account uses Google sign-in")
		case errors.Is(err, service.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "not_found", "User not found")
		default:
			h.log.Error().Err(err).Msg("failed to change password")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to change password")
		}
		return
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Password changed, please log in again",
	})
}
