package router

import (
	"net/http"
	"time"

	"github.com/mailblast/mailblast/internal/auth"
	"github.com/mailblast/mailblast/internal/handler"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, log *logger.Logger, tokenSvc *auth.TokenService) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"MailBlast API","version":"0.1.0"}`))
	})

	// Public authentication routes (rate limited)
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "login",
		Limit:  5,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	signupRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "signup",
		Limit:  3,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})
	refreshRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "refresh",
		Limit:  10,
		Window: 1 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	verifyRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "verify",
		Limit:  10,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /api/auth/signup", signupRateLimit(http.HandlerFunc(h.Signup)))
	mux.Handle("POST /api/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/auth/google", loginRateLimit(http.HandlerFunc(h.GoogleSignIn)))
	mux.Handle("POST /api/auth/refresh", refreshRateLimit(http.HandlerFunc(h.RefreshToken)))
	mux.Handle("POST /api/auth/logout", http.HandlerFunc(h.Logout))

	// Email verification (public, rate limited)
	mux.Handle("GET /api/auth/verify-email", verifyRateLimit(http.HandlerFunc(h.VerifyEmail)))
	mux.Handle("POST /api/auth/verify-email", verifyRateLimit(http.HandlerFunc(h.VerifyEmail)))
	mux.Handle("POST /api/auth/resend-verification", verifyRateLimit(http.HandlerFunc(h.ResendVerification)))

	// Protected routes (require auth)
	authMw := mw.Auth(tokenSvc)

	// User routes
	mux.Handle("GET /api/users/me", authMw(http.HandlerFunc(h.GetCurrentUser)))
	mux.Handle("PATCH /api/users/me", authMw(http.HandlerFunc(h.UpdateName)))
	mux.Handle("POST /api/users/me/password", authMw(http.HandlerFunc(h.ChangePassword)))

	// CSV upload routes
	mux.Handle("POST /api/upload/csv", authMw(http.HandlerFunc(h.UploadCSV)))
	mux.Handle("GET /api/upload/csv", authMw(http.HandlerFunc(h.ListCSVFiles)))
	mux.Handle("DELETE /api/upload/csv/{id}", authMw(http.HandlerFunc(h.DeleteCSVFile)))

	// Template routes
	mux.Handle("POST /api/templates", authMw(http.HandlerFunc(h.CreateTemplate)))
	mux.Handle("GET /api/templates", authMw(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("PUT /api/templates/{id}", authMw(http.HandlerFunc(h.UpdateTemplate)))
	mux.Handle("DELETE /api/templates/{id}", authMw(http.HandlerFunc(h.DeleteTemplate)))

	// Dispatch (authenticated, rate limited per user)
	dispatchRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "dispatch",
		Limit:  10,
		Window: 1 * time.Hour,
		KeyFn:  middleware.UserKey,
	})
	mux.Handle("POST /api/mail/send", authMw(dispatchRateLimit(http.HandlerFunc(h.SendMassMail))))

	// Delivery log
	mux.Handle("GET /api/mail/logs", authMw(http.HandlerFunc(h.GetMailLogs)))

	// AI content generation (authenticated, rate limited per user)
	aiRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "ai",
		Limit:  20,
		Window: 1 * time.Hour,
		KeyFn:  middleware.UserKey,
	})
	mux.Handle("POST /api/ai/generate-full-email", authMw(aiRateLimit(http.HandlerFunc(h.GenerateFullEmail))))

	// Apply middleware stack
	var handler http.Handler = mux

	handler = mw.CORS(handler)

	handler = mw.SecurityHeaders(handler)

	handler = mw.Logger(handler)

	handler = mw.Timing(handler)

	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
