package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/model"
)

// FileRepository handles uploaded CSV metadata persistence
type FileRepository struct {
	db *database.Postgres
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *database.Postgres) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a new CSV file record
func (r *FileRepository) Create(ctx context.Context, file *model.CSVFile) error {
	query := `
		INSERT INTO csv_files (id, user_id, file_name, url, public_id, row_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID,
		file.UserID,
		file.FileName,
		file.URL,
		file.PublicID,
		file.RowCount,
		file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	return nil
}

// GetByID retrieves a CSV file record scoped to its owner
func (r *FileRepository) GetByID(ctx context.Context, userID, id string) (*model.CSVFile, error) {
	query := `
		SELECT id, user_id, file_name, url, public_id, row_count, created_at
		FROM csv_files
		WHERE id = $1 AND user_id = $2
	`
	var file model.CSVFile
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&file.ID,
		&file.UserID,
		&file.FileName,
		&file.URL,
		&file.PublicID,
		&file.RowCount,
		&file.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get csv file: %w", err)
	}
	return &file, nil
}

// ListByUser returns all CSV files a user has uploaded, newest first
func (r *FileRepository) ListByUser(ctx context.Context, userID string) ([]*model.CSVFile, error) {
	query := `
		SELECT id, user_id, file_name, url, public_id, row_count, created_at
		FROM csv_files
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list csv files: %w", err)
	}
	defer rows.Close()

	var files []*model.CSVFile
	for rows.Next() {
		var file model.CSVFile
		if err := rows.Scan(
			&file.ID,
			&file.UserID,
			&file.FileName,
			&file.URL,
			&file.PublicID,
			&file.RowCount,
			&file.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan csv file: %w", err)
		}
		files = append(files, &file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate csv files: %w", err)
	}
	return files, nil
}

// Delete removes a CSV file record scoped to its owner
func (r *FileRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM csv_files WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete csv file: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
