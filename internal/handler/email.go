package handler

import (
	"errors"
	"net/http"

	"github.com/mailblast/mailblast/internal/ingest"
	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/service"
)

// SendMassMail runs a dispatch job and returns the per-recipient summary.
// Pre-flight failures map to the error taxonomy; once sending starts the
// response is always 200 with partial results.
func (h *Handler) SendMassMail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req service.DispatchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	result, err := h.dispatchSvc.SendMassMail(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingDispatchFields):
			writeError(w, http.StatusBadRequest, "validation_error", "Subject, body and csvFileId are required")
		case errors.Is(err, service.ErrGmailNotLinked):
			writeError(w, http.StatusForbidden, "gmail_not_linked", "Sign in with Google to send mail through your Gmail account")
		case errors.Is(err, service.ErrGmailTokenExpired):
			writeError(w, http.StatusForbidden, "gmail_token_expired", "Gmail authorization has expired, sign in with Google again")
		case errors.Is(err, service.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "not_found", "CSV file not found")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "not_found", "User not found")
		case errors.Is(err, ingest.ErrFetch):
			writeError(w, http.StatusBadGateway, "fetch_failed", "Failed to fetch the recipient sheet")
		default:
			h.log.Error().Err(err).Msg("mass mail dispatch failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to send mass mail")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Mass mail dispatch completed",
		"result":  result,
	})
}
