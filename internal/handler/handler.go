package handler

import (
	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	db          *database.Postgres
	rdb         *database.Redis
	log         *logger.Logger
	cfg         *config.Config
	authSvc     *service.AuthService
	sessionSvc  *service.SessionService
	userSvc     *service.UserService
	uploadSvc   *service.UploadService
	templateSvc *service.TemplateService
	dispatchSvc *service.DispatchService
	mailLogSvc  *service.MailLogService
	aiSvc       *service.AIService
}

// New creates a new Handler instance
func New(
	db *database.Postgres,
	rdb *database.Redis,
	log *logger.Logger,
	cfg *config.Config,
	authSvc *service.AuthService,
	sessionSvc *service.SessionService,
	userSvc *service.UserService,
	uploadSvc *service.UploadService,
	templateSvc *service.TemplateService,
	dispatchSvc *service.DispatchService,
	mailLogSvc *service.MailLogService,
	aiSvc *service.AIService,
) *Handler {
	return &Handler{
		db:          db,
		rdb:         rdb,
		log:         log,
		cfg:         cfg,
		authSvc:     authSvc,
		sessionSvc:  sessionSvc,
		userSvc:     userSvc,
		uploadSvc:   uploadSvc,
		templateSvc: templateSvc,
		dispatchSvc: dispatchSvc,
		mailLogSvc:  mailLogSvc,
		aiSvc:       aiSvc,
	}
}
