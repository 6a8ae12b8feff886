package handler

import (
	"errors"
	"net/http"

	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/service"
)

// CreateTemplate saves a new template
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req service.TemplateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	tpl, err := h.templateSvc.Create(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "validation_error", "Name, subject and body are required")
			return
		}
		h.log.Error().Err(err).Msg("template create failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create template")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"template": tpl,
	})
}

// ListTemplates returns the user's saved templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	templates, err := h.templateSvc.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("template list failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list templates")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
	})
}

// UpdateTemplate modifies an existing template
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	templateID := r.PathValue("id")

	var req service.TemplateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	tpl, err := h.templateSvc.Update(r.Context(), userID, templateID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "validation_error", "Name, subject and body are required")
		case errors.Is(err, service.ErrTemplateNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Template not found")
		default:
			h.log.Error().Err(err).Msg("template update failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update template")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"template": tpl,
	})
}

// DeleteTemplate removes a template
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	templateID := r.PathValue("id")

	if err := h.templateSvc.Delete(r.Context(), userID, templateID); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Template not found")
			return
		}
		h.log.Error().Err(err).Msg("template delete failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete template")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Template deleted",
	})
}
