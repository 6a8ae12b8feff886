package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/email"
	"github.com/mailblast/mailblast/internal/ingest"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/render"
	"github.com/mailblast/mailblast/internal/repository"
)

// Dispatch service errors
var (
	ErrMissingDispatchFields = errors.New("subject, body and file id are required")
	ErrGmailNotLinked        = errors.New("gmail account is not linked")
	ErrGmailTokenExpired     = errors.New("gmail authorization has expired, sign in with Google again")
	ErrFileNotFound          = errors.New("csv file not found")
	ErrMissingEmailField     = errors.New("no email field in row")
)

// SheetFetcher retrieves a recipient sheet by URL.
// Implemented by ingest.Fetcher.
type SheetFetcher interface {
	Fetch(ctx context.Context, url string) (*ingest.Sheet, error)
}

// MailLogStore records send attempts.
// Implemented by repository.MailLogRepository.
type MailLogStore interface {
	Create(ctx context.Context, log *model.MailLog) error
}

// DispatchUserStore is the user lookup surface the dispatcher needs.
// Implemented by repository.UserRepository.
type DispatchUserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetGoogleTokens(ctx context.Context, userID string) (*model.GoogleTokens, error)
}

// CSVFileStore is the file lookup surface the dispatcher needs.
// Implemented by repository.FileRepository.
type CSVFileStore interface {
	GetByID(ctx context.Context, userID, id string) (*model.CSVFile, error)
}

// DispatchRequest is one mass-mail job.
type DispatchRequest struct {
	CSVFileID string `json:"csvFileId"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// FailedEmail identifies one recipient that could not be delivered to.
type FailedEmail struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// DispatchResult summarizes a completed job. Successful+Failed always
// equals Total and FailedEmails has exactly Failed entries.
type DispatchResult struct {
	Total        int           `json:"total"`
	Successful   int           `json:"successful"`
	Failed       int           `json:"failed"`
	FailedEmails []FailedEmail `json:"failedEmails"`
}

// rowOutcome is the per-row result slot filled in by the batch workers.
type rowOutcome struct {
	email string
	err   error
}

// DispatchService sends personalized mass mail in fixed-size batches
// through the requesting user's own Gmail account.
type DispatchService struct {
	users     DispatchUserStore
	files     CSVFileStore
	logs      MailLogStore
	fetcher   SheetFetcher
	newSender email.SenderFactory
	cfg       config.DispatchConfig
	log       *logger.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	users DispatchUserStore,
	files CSVFileStore,
	logs MailLogStore,
	fetcher SheetFetcher,
	newSender email.SenderFactory,
	cfg config.DispatchConfig,
	log *logger.Logger,
) *DispatchService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &DispatchService{
		users:     users,
		files:     files,
		logs:      logs,
		fetcher:   fetcher,
		newSender: newSender,
		cfg:       cfg,
		log:       log.WithComponent("dispatch_service"),
	}
}

// SendMassMail runs one dispatch job. Pre-flight failures abort before any
// send; once sending starts, per-row failures are isolated and the job
// always runs to completion over every row.
func (s *DispatchService) SendMassMail(ctx context.Context, userID string, req DispatchRequest) (*DispatchResult, error) {
	if req.Subject == "" || req.Body == "" || req.CSVFileID == "" {
		return nil, ErrMissingDispatchFields
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	tokens, err := s.users.GetGoogleTokens(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGmailNotLinked
		}
		return nil, fmt.Errorf("failed to load gmail credential: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, ErrGmailNotLinked
	}
	if tokens.IsExpired() {
		return nil, ErrGmailTokenExpired
	}

	file, err := s.files.GetByID(ctx, userID, req.CSVFileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to load csv file: %w", err)
	}

	sheet, err := s.fetcher.Fetch(ctx, file.URL)
	if err != nil {
		return nil, err
	}

	sender, err := s.newSender(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build gmail sender: %w", err)
	}

	emailColumn := sheet.EmailColumn()
	outcomes := make([]rowOutcome, sheet.RowCount())

	s.log.Info().
		Str("user_id", userID).
		Str("file_id", file.ID).
		Int("rows", sheet.RowCount()).
		Msg("mass mail dispatch started")

	// Batches run strictly one after another; rows inside a batch fan out
	// concurrently and settle on the WaitGroup. The inter-batch pause is
	// unconditional, failures included.
	for start := 0; start < len(sheet.Rows); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(sheet.Rows) {
			end = len(sheet.Rows)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int, row ingest.Row) {
				defer wg.Done()
				outcomes[idx] = s.sendRow(ctx, userID, sender, emailColumn, row, req)
			}(i, sheet.Rows[i])
		}
		wg.Wait()

		if end < len(sheet.Rows) {
			time.Sleep(s.cfg.BatchDelay)
		}
	}

	result := &DispatchResult{
		Total:        sheet.RowCount(),
		FailedEmails: []FailedEmail{},
	}
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed++
			result.FailedEmails = append(result.FailedEmails, FailedEmail{
				Email: o.email,
				Error: o.err.Error(),
			})
		} else {
			result.Successful++
		}
	}

	s.log.Info().
		Str("user_id", userID).
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("mass mail dispatch finished")

	return result, nil
}

// sendRow renders and sends to one recipient and writes exactly one mail
// log entry for the attempt. A log write failure never flips the outcome.
func (s *DispatchService) sendRow(ctx context.Context, userID string, sender email.Sender, emailColumn string, row ingest.Row, req DispatchRequest) rowOutcome {
	recipient := ""
	if emailColumn != "" {
		recipient = row[emailColumn]
	}

	subject := render.Render(req.Subject, row)

	var sendErr error
	if recipient == "" {
		sendErr = ErrMissingEmailField
	} else {
		body := render.Render(req.Body, row)
		htmlBody := strings.ReplaceAll(body, "\n", "<br>")

		sendErr = sender.Send(ctx, email.Message{
			To:       recipient,
			Subject:  subject,
			HTMLBody: htmlBody,
		})
	}

	logEntry := &model.MailLog{
		ID:             generateID("log"),
		UserID:         userID,
		RecipientEmail: recipient,
		Subject:        subject,
		Status:         model.MailStatusSuccess,
		SentAt:         time.Now(),
	}
	if sendErr != nil {
		msg := sendErr.Error()
		logEntry.Status = model.MailStatusFailed
		logEntry.ErrorMessage = &msg
	}

	if err := s.logs.Create(ctx, logEntry); err != nil {
		s.log.Error().Err(err).Str("recipient", recipient).Msg("failed to write mail log")
	}

	return rowOutcome{email: recipient, err: sendErr}
}
