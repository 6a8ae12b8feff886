package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/service"
)

// GetMailLogs returns the authenticated user's delivery log, filtered and
// paginated through query parameters.
func (h *Handler) GetMailLogs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	q := r.URL.Query()
	filter := service.MailLogFilter{
		Status: q.Get("status"),
	}

	var page, limit int
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "page must be a number")
			return
		}
		page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a number")
			return
		}
		limit = n
	}
	if v := q.Get("from"); v != "" {
		from, err := parseLogDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "from must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseLogDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "to must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return
		}
		filter.To = &to
	}

	result, err := h.mailLogSvc.Query(r.Context(), userID, filter, page, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "validation_error", "status must be success or failed")
			return
		}
		h.log.Error().Err(err).Msg("mail log query failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load mail logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseLogDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
