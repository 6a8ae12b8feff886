package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailblast/mailblast/internal/auth"
	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/database"
	"github.com/mailblast/mailblast/internal/email"
	"github.com/mailblast/mailblast/internal/handler"
	"github.com/mailblast/mailblast/internal/ingest"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/middleware"
	"github.com/mailblast/mailblast/internal/repository"
	"github.com/mailblast/mailblast/internal/router"
	"github.com/mailblast/mailblast/internal/service"
	"github.com/mailblast/mailblast/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting MailBlast server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	fileRepo := repository.NewFileRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	mailLogRepo := repository.NewMailLogRepository(db)

	// Initialize token service
	tokenSvc := auth.NewTokenService(cfg.Security.Tokens)

	// System sender for verification mail
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	systemMail, err := email.NewGmailSenderWithToken(
		ctx,
		cfg.Email.Gmail.ClientID,
		cfg.Email.Gmail.ClientSecret,
		cfg.Email.Gmail.RefreshToken,
		cfg.Email.Gmail.SenderAddress,
		cfg.Email.Gmail.SenderName,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize system mail sender")
	}

	// Object store for uploaded CSVs
	store, err := storage.NewCloudinaryStore(cfg.Storage.CloudinaryURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object store")
	}

	// Initialize services
	sessionSvc := service.NewSessionService(tokenRepo, cfg.Security.Tokens, log)
	authSvc := service.NewAuthService(userRepo, sessionSvc, tokenSvc, auth.NewGoogleClient(), systemMail, rdb, cfg, log)
	userSvc := service.NewUserService(userRepo, sessionSvc, cfg, log)
	uploadSvc := service.NewUploadService(fileRepo, userRepo, store, cfg.Storage, log)
	templateSvc := service.NewTemplateService(templateRepo, log)
	mailLogSvc := service.NewMailLogService(mailLogRepo, log)

	senderFactory := func(ctx context.Context, accessToken string) (email.Sender, error) {
		return email.NewGmailSenderForUser(ctx, accessToken)
	}
	dispatchSvc := service.NewDispatchService(userRepo, fileRepo, mailLogRepo, ingest.NewFetcher(nil), senderFactory, cfg.Dispatch, log)

	aiSvc, err := service.NewAIService(ctx, cfg.AI, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AI service")
	}
	defer aiSvc.Close()

	// Expired refresh credential sweep
	go sessionSvc.RunCleanup(ctx, time.Hour)

	// Initialize handlers
	h := handler.New(db, rdb, log, cfg, authSvc, sessionSvc, userSvc, uploadSvc, templateSvc, dispatchSvc, mailLogSvc, aiSvc)

	// Initialize middleware
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw, log, tokenSvc)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
