package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

// ErrTemplateNotFound is returned for a missing or foreign template
var ErrTemplateNotFound = errors.New("template not found")

// TemplateService manages saved subject/body templates
type TemplateService struct {
	templateRepo *repository.TemplateRepository
	log          *logger.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo *repository.TemplateRepository, log *logger.Logger) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		log:          log.WithComponent("template_service"),
	}
}

// TemplateRequest carries template fields from the API
type TemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (r TemplateRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Subject) == "" || strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("%w: name, subject and body are required", repository.ErrInvalidInput)
	}
	return nil
}

// Create saves a new template for the user
func (s *TemplateService) Create(ctx context.Context, userID string, req TemplateRequest) (*model.Template, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	tpl := &model.Template{
		ID:        generateID("tpl"),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return tpl, nil
}

// List returns the user's templates, newest first
func (s *TemplateService) List(ctx context.Context, userID string) ([]*model.Template, error) {
	templates, err := s.templateRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []*model.Template{}
	}
	return templates, nil
}

// Update modifies an existing template
func (s *TemplateService) Update(ctx context.Context, userID, templateID string, req TemplateRequest) (*model.Template, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	tpl, err := s.templateRepo.GetByID(ctx, userID, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	tpl.Name = strings.TrimSpace(req.Name)
	tpl.Subject = req.Subject
	tpl.Body = req.Body

	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return tpl, nil
}

// Delete removes a template
func (s *TemplateService) Delete(ctx context.Context, userID, templateID string) error {
	if err := s.templateRepo.Delete(ctx, userID, templateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}
