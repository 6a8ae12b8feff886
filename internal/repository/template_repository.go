package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/model"
)

// TemplateRepository handles saved template persistence
type TemplateRepository struct {
	db *database.Postgres
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *database.Postgres) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a new template
func (r *TemplateRepository) Create(ctx context.Context, tpl *model.Template) error {
	query := `
		INSERT INTO templates (id, user_id, name, subject, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		tpl.ID,
		tpl.UserID,
		tpl.Name,
		tpl.Subject,
		tpl.Body,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID retrieves a template scoped to its owner
func (r *TemplateRepository) GetByID(ctx context.Context, userID, id string) (*model.Template, error) {
	query := `
		SELECT id, user_id, name, subject, body, created_at, updated_at
		FROM templates
		WHERE id = $1 AND user_id = $2
	`
	var tpl model.Template
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&tpl.ID,
		&tpl.UserID,
		&tpl.Name,
		&tpl.Subject,
		&tpl.Body,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}

// ListByUser returns all templates of a user, newest first
func (r *TemplateRepository) ListByUser(ctx context.Context, userID string) ([]*model.Template, error) {
	query := `
		SELECT id, user_id, name, subject, body, created_at, updated_at
		FROM templates
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*model.Template
	for rows.Next() {
		var tpl model.Template
		if err := rows.Scan(
			&tpl.ID,
			&tpl.UserID,
			&tpl.Name,
			&tpl.Subject,
			&tpl.Body,
			&tpl.CreatedAt,
			&tpl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

// Update modifies a template scoped to its owner
func (r *TemplateRepository) Update(ctx context.Context, tpl *model.Template) error {
	query := `
		UPDATE templates
		SET name = $1, subject = $2, body = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		tpl.Name,
		tpl.Subject,
		tpl.Body,
		time.Now(),
		tpl.ID,
		tpl.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a template scoped to its owner
func (r *TemplateRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM templates WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
