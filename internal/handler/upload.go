package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/service"
)

// UploadCSV accepts a multipart CSV upload (field "csv") and stores it
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Storage.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.Storage.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "upload_too_large", "CSV file exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("csv")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "A csv file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") &&
		contentType != "text/csv" && contentType != "application/vnd.ms-excel" {
		writeError(w, http.StatusBadRequest, "unsupported_file", "Only .csv files are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Failed to read uploaded file")
		return
	}

	uploaded, err := h.uploadSvc.Upload(r.Context(), userID, header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotVerified):
			writeError(w, http.StatusForbidden, "email_not_verified", "Verify your email before uploading")
		case errors.Is(err, service.ErrEmptySheet):
			writeError(w, http.StatusBadRequest, "empty_sheet", "CSV file has no data rows")
		case errors.Is(err, service.ErrUploadTooLarge):
			writeError(w, http.StatusBadRequest, "upload_too_large", "CSV file exceeds the upload size limit")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "not_found", "User not found")
		default:
			h.log.Error().Err(err).Msg("csv upload failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store CSV")
		}
		return
	}

	files, err := h.uploadSvc.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list csv files after upload")
		files = nil
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"file":  uploaded,
		"files": files,
	})
}

// ListCSVFiles returns the user's uploaded files
func (h *Handler) ListCSVFiles(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	files, err := h.uploadSvc.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list csv files")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
	})
}

// DeleteCSVFile removes an uploaded file
func (h *Handler) DeleteCSVFile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fileID := r.PathValue("id")

	if err := h.uploadSvc.Delete(r.Context(), userID, fileID); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "CSV file not found")
			return
		}
		h.log.Error().Err(err).Msg("csv delete failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "File deleted",
	})
}
