package handler

import (
	"errors"
	"net/http"

	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/service"
)

// GenerateFullEmail drafts a subject and body with the configured model
func (h *Handler) GenerateFullEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string `json:"prompt"`
		EmailType string `json:"emailType"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	generated, err := h.aiSvc.GenerateFullEmail(r.Context(), req.Prompt, req.EmailType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAIUnavailable):
			writeError(w, http.StatusServiceUnavailable, "ai_unavailable", "AI content generation is not configured")
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "validation_error", "A prompt is required")
		default:
			h.log.Error().Err(err).Msg("ai generation failed")
			writeError(w, http.StatusBadGateway, "ai_failed", "Failed to generate email content")
		}
		return
	}

	writeJSON(w, http.StatusOK, generated)
}
