package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

type fakeMailLogLister struct {
	lastQuery repository.MailLogQuery
	logs      []*model.MailLog
	total     int
}

func (f *fakeMailLogLister) ListByUser(ctx context.Context, userID string, q repository.MailLogQuery) ([]*model.MailLog, int, error) {
	f.lastQuery = q
	return f.logs, f.total, nil
}

func newTestMailLogService(lister MailLogLister) *MailLogService {
	return NewMailLogService(lister, logger.New("error", "text"))
}

func TestQueryDefaultsAndClamps(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantLimit  int
		wantOffset int
		wantPage   int
	}{
		{"defaults", 0, 0, 10, 0, 1},
		{"negative page", -5, 0, 10, 0, 1},
		{"limit clamped high", 1, 200, 100, 0, 1},
		{"limit clamped low", 1, -1, 10, 0, 1},
		{"second page", 2, 25, 25, 25, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeMailLogLister{}
			svc := newTestMailLogService(lister)

			page, err := svc.Query(context.Background(), "usr_1", MailLogFilter{}, tt.page, tt.limit)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if lister.lastQuery.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", lister.lastQuery.Limit, tt.wantLimit)
			}
			if lister.lastQuery.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", lister.lastQuery.Offset, tt.wantOffset)
			}
			if page.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", page.Page, tt.wantPage)
			}
		})
	}
}

func TestQueryStatusFilter(t *testing.T) {
	lister := &fakeMailLogLister{}
	svc := newTestMailLogService(lister)

	if _, err := svc.Query(context.Background(), "usr_1", MailLogFilter{Status: "success"}, 1, 10); err != nil {
		t.Errorf("status success error = %v", err)
	}
	if lister.lastQuery.Status != model.MailStatusSuccess {
		t.Errorf("status = %q, want success", lister.lastQuery.Status)
	}

	if _, err := svc.Query(context.Background(), "usr_1", MailLogFilter{Status: "failed"}, 1, 10); err != nil {
		t.Errorf("status failed error = %v", err)
	}

	_, err := svc.Query(context.Background(), "usr_1", MailLogFilter{Status: "bounced"}, 1, 10)
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("unknown status error = %v, want ErrInvalidInput", err)
	}
}

func TestQueryEndOfDay(t *testing.T) {
	lister := &fakeMailLogLister{}
	svc := newTestMailLogService(lister)

	// Date-only bound expands to the end of that day
	to := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Query(context.Background(), "usr_1", MailLogFilter{To: &to}, 1, 10); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	want := time.Date(2026, 3, 15, 23, 59, 59, 999999999, time.UTC)
	if !lister.lastQuery.To.Equal(want) {
		t.Errorf("to = %v, want %v", lister.lastQuery.To, want)
	}

	// Explicit time component passes through unchanged
	to = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	if _, err := svc.Query(context.Background(), "usr_1", MailLogFilter{To: &to}, 1, 10); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !lister.lastQuery.To.Equal(to) {
		t.Errorf("to = %v, want %v unchanged", lister.lastQuery.To, to)
	}
}

func TestQueryTotalPages(t *testing.T) {
	lister := &fakeMailLogLister{total: 25}
	svc := newTestMailLogService(lister)

	page, err := svc.Query(context.Background(), "usr_1", MailLogFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
	if page.Total != 25 {
		t.Errorf("Total = %d, want 25", page.Total)
	}
}

func TestQueryNilLogsBecomeEmptySlice(t *testing.T) {
	svc := newTestMailLogService(&fakeMailLogLister{})

	page, err := svc.Query(context.Background(), "usr_1", MailLogFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if page.Logs == nil {
		t.Error("Logs is nil, want empty slice")
	}
}
