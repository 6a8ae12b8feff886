package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

const (
	defaultLogLimit = 10
	maxLogLimit     = 100
)

// MailLogLister is the query surface the log service needs.
// Implemented by repository.MailLogRepository.
type MailLogLister interface {
	ListByUser(ctx context.Context, userID string, q repository.MailLogQuery) ([]*model.MailLog, int, error)
}

// MailLogFilter narrows a delivery log query. Date-only To values are
// expanded to the end of that day so the range stays inclusive.
type MailLogFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// MailLogPage is one page of delivery log entries
type MailLogPage struct {
	Logs       []*model.MailLog `json:"logs"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// MailLogService reads the per-recipient delivery log
type MailLogService struct {
	logs MailLogLister
	log  *logger.Logger
}

// NewMailLogService creates a new MailLogService
func NewMailLogService(logs MailLogLister, log *logger.Logger) *MailLogService {
	return &MailLogService{
		logs: logs,
		log:  log.WithComponent("maillog_service"),
	}
}

// Query returns a page of the user's delivery log, newest first. Limit is
// clamped to [1, 100] with a default of 10; page is clamped to at least 1.
func (s *MailLogService) Query(ctx context.Context, userID string, filter MailLogFilter, page, limit int) (*MailLogPage, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	if page < 1 {
		page = 1
	}

	q := repository.MailLogQuery{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	switch filter.Status {
	case string(model.MailStatusSuccess), string(model.MailStatusFailed):
		q.Status = model.MailStatus(filter.Status)
	case "":
	default:
		return nil, fmt.Errorf("%w: unknown status %q", repository.ErrInvalidInput, filter.Status)
	}

	q.From = filter.From
	if filter.To != nil {
		to := endOfDay(*filter.To)
		q.To = &to
	}

	logs, total, err := s.logs.ListByUser(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*model.MailLog{}
	}

	totalPages := (total + limit - 1) / limit

	return &MailLogPage{
		Logs:       logs,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// endOfDay pushes date-only bounds to 23:59:59.999999999 in the value's
// location when the time component is midnight.
func endOfDay(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
