package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/email"
	"github.com/mailblast/mailblast/internal/ingest"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

type fakeDispatchUsers struct {
	user   *model.User
	tokens *model.GoogleTokens
}

func (f *fakeDispatchUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeDispatchUsers) GetGoogleTokens(ctx context.Context, userID string) (*model.GoogleTokens, error) {
	if f.tokens == nil {
		return nil, repository.ErrNotFound
	}
	return f.tokens, nil
}

type fakeFileStore struct {
	file *model.CSVFile
}

func (f *fakeFileStore) GetByID(ctx context.Context, userID, id string) (*model.CSVFile, error) {
	if f.file == nil || f.file.ID != id || f.file.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return f.file, nil
}

type fakeMailLogStore struct {
	mu      sync.Mutex
	entries []*model.MailLog
	err     error
}

func (f *fakeMailLogStore) Create(ctx context.Context, log *model.MailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, log)
	return nil
}

type fakeFetcher struct {
	sheet *ingest.Sheet
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*ingest.Sheet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sheet, nil
}

// countingSender tracks in-flight concurrency and every message sent.
type countingSender struct {
	mu        sync.Mutex
	messages  []email.Message
	inFlight  int32
	maxInFly  int32
	delay     time.Duration
	failAddrs map[string]bool
}

func (s *countingSender) Send(ctx context.Context, msg email.Message) error {
	cur := atomic.AddInt32(&s.inFlight, 1)
	for {
		prev := atomic.LoadInt32(&s.maxInFly)
		if cur <= prev || atomic.CompareAndSwapInt32(&s.maxInFly, prev, cur) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	atomic.AddInt32(&s.inFlight, -1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAddrs[msg.To] {
		return fmt.Errorf("smtp rejected %s", msg.To)
	}
	s.messages = append(s.messages, msg)
	return nil
}

func sheetWithRows(n int) *ingest.Sheet {
	sheet := &ingest.Sheet{Headers: []string{"name", "email"}}
	for i := 0; i < n; i++ {
		sheet.Rows = append(sheet.Rows, ingest.Row{
			"name":  fmt.Sprintf("User %d", i),
			"email": fmt.Sprintf("user%d@example.com", i),
		})
	}
	return sheet
}

func newTestDispatchService(users DispatchUserStore, files CSVFileStore, logs MailLogStore, fetcher SheetFetcher, sender email.Sender, batchDelay time.Duration) *DispatchService {
	factory := func(ctx context.Context, accessToken string) (email.Sender, error) {
		return sender, nil
	}
	cfg := config.DispatchConfig{BatchSize: 10, BatchDelay: batchDelay}
	return NewDispatchService(users, files, logs, fetcher, factory, cfg, logger.New("error", "text"))
}

func linkedDispatchFixture(rows int) (*fakeDispatchUsers, *fakeFileStore, *fakeFetcher) {
	users := &fakeDispatchUsers{
		user: &model.User{ID: "usr_1", Email: "owner@example.com", IsVerified: true},
		tokens: &model.GoogleTokens{
			UserID:      "usr_1",
			AccessToken: "ya29.token",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
	files := &fakeFileStore{
		file: &model.CSVFile{ID: "csv_1", UserID: "usr_1", URL: "https://example.com/sheet.csv"},
	}
	fetcher := &fakeFetcher{sheet: sheetWithRows(rows)}
	return users, files, fetcher
}

func TestSendMassMailBatching(t *testing.T) {
	users, files, fetcher := linkedDispatchFixture(25)
	logs := &fakeMailLogStore{}
	sender := &countingSender{delay: 10 * time.Millisecond}
	delay := 30 * time.Millisecond
	svc := newTestDispatchService(users, files, logs, fetcher, sender, delay)

	startedAt := time.Now()
	result, err := svc.SendMassMail(context.Background(), "usr_1", DispatchRequest{
		CSVFileID: "csv_1",
		Subject:   "Hi {{name}}",
		Body:      "Hello {{name}}",
	})
	elapsed := time.Since(startedAt)

	if err != nil {
		t.Fatalf("SendMassMail() error = %v", err)
	}
	if result.Total != 25 || result.Successful != 25 || result.Failed != 0 {
		t.Errorf("result = %+v, want 25/25/0", result)
	}
	if got := atomic.LoadInt32(&sender.maxInFly); got > 10 {
		t.Errorf("max in-flight sends = %d, want <= batch size 10", got)
	}
	if len(sender.messages) != 25 {
		t.Errorf("sent %d messages, want 25", len(sender.messages))
	}
	// 25 rows in batches of 10 means two inter-batch pauses, none after
	// the final batch.
	if elapsed < 2*delay {
		t.Errorf("elapsed %v, want at least two batch delays (%v)", elapsed, 2*delay)
	}
	if len(logs.entries) != 25 {
		t.Errorf("wrote %d mail logs, want 25", len(logs.entries))
	}
}

func TestSendMassMailRendersPerRecipient(t *testing.T) {
	users, files, fetcher := linkedDispatchFixture(2)
	logs := &fakeMailLogStore{}
	sender := &countingSender{}
	svc := newTestDispatchService(users, files, logs, fetcher, sender, 0)

	_, err := svc.SendMassMail(context.Background(), "usr_1", DispatchRequest{
		CSVFileID: "csv_1",
		Subject:   "Hi {{name}}",
		Body:      "Hello {{name}},\nWelcome!",
	})
	if err != nil {
		t.Fatalf("SendMassMail() error = %v", err)
	}

	for _, msg := range sender.messages {
		if strings.Contains(msg.Subject, "{{") {
			t.Errorf("subject not rendered: %q", msg.Subject)
		}
		if !strings.Contains(msg.HTMLBody, "<br>") {
			t.Errorf("newlines not converted to <br>: %q", msg.HTMLBody)
		}
		if strings.Contains(msg.HTMLBody, "\n") {
			t.Errorf("raw newline left in html body: %q", msg.HTMLBody)
		}
	}
}

func TestSendMassMailPartialFailure(t *testing.T) {
	users, files, fetcher := linkedDispatchFixture(5)
	logs := &fakeMailLogStore{}
	sender := &countingSender{failAddrs: map[string]bool{
		"user1@example.com": true,
		"user3@example.com": true,
	}}
	svc := newTestDispatchService(users, files, logs, fetcher, sender, 0)

	result, err := svc.SendMassMail(context.Background(), "usr_1", DispatchRequest{
		CSVFileID: "csv_1",
		Subject:   "s",
		Body:      "b",
	})
	if err != nil {
		t.Fatalf("SendMassMail() error = %v", err)
	}

	if result.Total != 5 || result.Successful != 3 || result.Failed != 2 {
		t.Errorf("result = %+v, want 5 total, 3 successful, 2 failed", result)
	}
	if result.Successful+result.Failed != result.Total {
		t.Errorf("successful+failed != total: %+v", result)
	}
	if len(result.FailedEmails) != 2 {
		t.Fatalf("FailedEmails has %d entries, want 2", len(result.FailedEmails))
	}

	var failedLogs int
	for _, entry := range logs.entries {
		if entry.Status == model.MailStatusFailed {
			failedLogs++
			if entry.ErrorMessage == nil || *entry.ErrorMessage == "" {
				t.Error("failed log entry has no error message")
			}
		}
	}
	if failedLogs != 2 {
		t.Errorf("wrote %d failed log entries, want 2", failedLogs)
	}
}

func TestSendMassMailMissingEmailColumn(t *testing.T) {
	users, files, _ := linkedDispatchFixture(0)
	fetcher := &fakeFetcher{sheet: &ingest.Sheet{
		Headers: []string{"name"},
		Rows:    []ingest.Row{{"name": "Alice"}, {"name": "Bob"}},
	}}
	logs := &fakeMailLogStore{}
	sender := &countingSender{}
	svc := newTestDispatchService(users, files, logs, fetcher, sender, 0)

	result, err := svc.SendMassMail(context.Background(), "usr_1", DispatchRequest{
		CSVFileID: "csv_1",
		Subject:   "s",
		Body:      "b",
	})
	if err != nil {
		t.Fatalf("SendMassMail() error = %v", err)
	}

	if result.Failed != 2 || result.Successful != 0 {
		t.Errorf("result = %+v, want every row failed", result)
	}
	if len(sender.messages) != 0 {
		t.Errorf("sender received %d messages, want 0", len(sender.messages))
	}
	if len(logs.entries) != 2 {
		t.Errorf("wrote %d log entries, want 2", len(logs.entries))
	}
}

func TestSendMassMailLogWriteFailureIsNonFatal(t *testing.T) {
	users, files, fetcher := linkedDispatchFixture(3)
	logs := &fakeMailLogStore{err: errors.New("db down")}
	sender := &countingSender{}
	svc := newTestDispatchService(users, files, logs, fetcher, sender, 0)

	result, err := svc.SendMassMail(context.Background(), "usr_1", DispatchRequest{
		CSVFileID: "csv_1",
		Subject:   "s",
		Body:      "b",
	})
	if err != nil {
		t.Fatalf("SendMassMail() error = %v", err)
	}
	if result.Successful != 3 {
		t.Errorf("result = %+v, want 3 successful despite log failures", result)
	}
}

func TestSendMassMailPreflight(t *testing.T) {
	base := DispatchRequest{CSVFileID: "csv_1", Subject: "s", Body: "b"}

	t.Run("missing fields", func(t *testing.T) {
		users, files, fetcher := linkedDispatchFixture(1)
		svc := newTestDispatchService(users, files, &fakeMailLogStore{}, fetcher, &countingSender{}, 0)

		for _, req := range []DispatchRequest{
			{Subject: "s", Body: "b"},
			{CSVFileID: "csv_1", Body: "b"},
			{CSVFileID: "csv_1", Subject: "s"},
		} {
			if _, err := svc.SendMassMail(context.Background(), "usr_1", req); !errors.Is(err, ErrMissingDispatchFields) {
				t.Errorf("error = %v, want ErrMissingDispatchFields", err)
			}
		}
	})

	t.Run("gmail not linked", func(t *testing.T) {
		users, files, fetcher := linkedDispatchFixture(1)
		users.tokens = nil
		svc := newTestDispatchService(users, files, &fakeMailLogStore{}, fetcher, &countingSender{}, 0)

		if _, err := svc.SendMassMail(context.Background(), "usr_1", base); !errors.Is(err, ErrGmailNotLinked) {
			t.Errorf("error = %v, want ErrGmailNotLinked", err)
		}
	})

	t.Run("gmail token expired", func(t *testing.T) {
		users, files, fetcher := linkedDispatchFixture(1)
		users.tokens.ExpiresAt = time.Now().Add(-time.Minute)
		svc := newTestDispatchService(users, files, &fakeMailLogStore{}, fetcher, &countingSender{}, 0)

		if _, err := svc.SendMassMail(context.Background(), "usr_1", base); !errors.Is(err, ErrGmailTokenExpired) {
			t.Errorf("error = %v, want ErrGmailTokenExpired", err)
		}
	})

	t.Run("file not found", func(t *testing.T) {
		users, files, fetcher := linkedDispatchFixture(1)
		files.file = nil
		svc := newTestDispatchService(users, files, &fakeMailLogStore{}, fetcher, &countingSender{}, 0)

		if _, err := svc.SendMassMail(context.Background(), "usr_1", base); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("error = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		users, files, fetcher := linkedDispatchFixture(1)
		fetcher.err = fmt.Errorf("%w: unexpected status 500", ingest.ErrFetch)
		svc := newTestDispatchService(users, files, &fakeMailLogStore{}, fetcher, &countingSender{}, 0)

		if _, err := svc.SendMassMail(context.Background(), "usr_1", base); !errors.Is(err, ingest.ErrFetch) {
			t.Errorf("error = %v, want ingest.ErrFetch", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		users, files, fetcher := linkedDispatchFixture(1)
		svc := newTestDispatchService(users, files, &fakeMailLogStore{}, fetcher, &countingSender{}, 0)

		if _, err := svc.SendMassMail(context.Background(), "usr_unknown", base); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("error = %v, want ErrUserNotFound", err)
		}
	})
}
