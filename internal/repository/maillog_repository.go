package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/model"
)

// MailLogRepository handles delivery log persistence
type MailLogRepository struct {
	db *database.Postgres
}

// NewMailLogRepository creates a new MailLogRepository
func NewMailLogRepository(db *database.Postgres) *MailLogRepository {
	return &MailLogRepository{db: db}
}

// Create inserts one delivery log entry. Each send attempt gets its own
// independent insert; there is no batching at this layer.
func (r *MailLogRepository) Create(ctx context.Context, log *model.MailLog) error {
	query := `
		INSERT INTO mail_logs (id, user_id, recipient_email, subject, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.RecipientEmail,
		log.Subject,
		log.Status,
		log.ErrorMessage,
		log.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create mail log: %w", err)
	}
	return nil
}

// MailLogQuery narrows a log listing. Zero values mean no filter.
type MailLogQuery struct {
	Status model.MailStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// ListByUser returns a page of delivery log entries for a user, newest
// first, together with the total count matching the filter.
func (r *MailLogRepository) ListByUser(ctx context.Context, userID string, q MailLogQuery) ([]*model.MailLog, int, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if q.Status != "" {
		args = append(args, q.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		conditions = append(conditions, fmt.Sprintf("sent_at >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		conditions = append(conditions, fmt.Sprintf("sent_at <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM mail_logs WHERE %s`, where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count mail logs: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	listQuery := fmt.Sprintf(`
		SELECT id, user_id, recipient_email, subject, status, error_message, sent_at
		FROM mail_logs
		WHERE %s
		ORDER BY sent_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mail logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.MailLog
	for rows.Next() {
		var log model.MailLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.RecipientEmail,
			&log.Subject,
			&log.Status,
			&log.ErrorMessage,
			&log.SentAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan mail log: %w", err)
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate mail logs: %w", err)
	}
	return logs, total, nil
}
