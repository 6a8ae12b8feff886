package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/ingest"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/storage"
)

// Upload service errors
var (
	ErrNotVerified     = errors.New("email must be verified before uploading")
	ErrEmptySheet      = errors.New("csv file has no data rows")
	ErrUploadTooLarge  = errors.New("csv file exceeds the upload size limit")
	ErrUnsupportedFile = errors.New("only .csv files are supported")
)

// UploadService stores recipient sheets in the object store and tracks
// their metadata.
type UploadService struct {
	fileRepo *repository.FileRepository
	userRepo *repository.UserRepository
	store    storage.ObjectStore
	cfg      config.StorageConfig
	log      *logger.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(
	fileRepo *repository.FileRepository,
	userRepo *repository.UserRepository,
	store storage.ObjectStore,
	cfg config.StorageConfig,
	log *logger.Logger,
) *UploadService {
	return &UploadService{
		fileRepo: fileRepo,
		userRepo: userRepo,
		store:    store,
		cfg:      cfg,
		log:      log.WithComponent("upload_service"),
	}
}

// Upload pushes a CSV to the object store and records it. Only verified
// users may upload.
func (s *UploadService) Upload(ctx context.Context, userID, fileName string, data []byte) (*model.CSVFile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	if int64(len(data)) > s.cfg.MaxUploadSize {
		return nil, ErrUploadTooLarge
	}

	sheet := ingest.Parse(string(data))
	if sheet.RowCount() == 0 {
		return nil, ErrEmptySheet
	}

	publicID := fmt.Sprintf("%s/%s/csv_%d", s.cfg.Folder, userID, time.Now().Unix())
	url, err := s.store.Upload(ctx, publicID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store csv: %w", err)
	}

	file := &model.CSVFile{
		ID:        generateID("csv"),
		UserID:    userID,
		FileName:  fileName,
		URL:       url,
		PublicID:  publicID,
		RowCount:  sheet.RowCount(),
		CreatedAt: time.Now(),
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		// Best effort: don't orphan the stored object
		if delErr := s.store.Delete(ctx, publicID); delErr != nil {
			s.log.Error().Err(delErr).Str("public_id", publicID).Msg("failed to clean up orphaned upload")
		}
		return nil, fmt.Errorf("failed to record csv file: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("file_id", file.ID).Int("rows", file.RowCount).Msg("csv uploaded")
	return file, nil
}

// List returns the user's uploaded files, newest first
func (s *UploadService) List(ctx context.Context, userID string) ([]*model.CSVFile, error) {
	files, err := s.fileRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []*model.CSVFile{}
	}
	return files, nil
}

// Delete removes a file from the object store and the database. A missing
// object in the store does not block the delete.
func (s *UploadService) Delete(ctx context.Context, userID, fileID string) error {
	file, err := s.fileRepo.GetByID(ctx, userID, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to get csv file: %w", err)
	}

	if err := s.store.Delete(ctx, file.PublicID); err != nil {
		s.log.Error().Err(err).Str("public_id", file.PublicID).Msg("failed to delete stored csv")
	}

	if err := s.fileRepo.Delete(ctx, userID, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete csv record: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("file_id", fileID).Msg("csv deleted")
	return nil
}
