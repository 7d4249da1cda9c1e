package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Tee-David/Millenium-Potters-sub001/docs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/cache"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/config"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/database"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/handlers"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/jobs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/middleware"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/services"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/storage"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

// @title Millenium Potters API
// @version 1.0
// @description Loan management API for union-based micro lending: unions, members, loans, repayment schedules and collections.

/// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Environment)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: 0.2,
		}); err != nil {
			logger.Error(fmt.Sprintf("Sentry initialization failed: %v", err))
		}
	}

	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY is not set, outgoing email is disabled")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to connect to database: %v", err))
		os.Exit(1)
	}

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		logger.Error(fmt.Sprintf("Failed to run migrations: %v", err))
		os.Exit(1)
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		c = cache.NewRedisCache(cfg.RedisAddr)
		logger.Info(fmt.Sprintf("Metrics cache backed by Redis at %s", cfg.RedisAddr))
	} else {
		c = cache.NewNoop()
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to initialize storage: %v", err))
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)
	worker := jobs.NewWorker(cfg.WorkerCount)
	svcs := services.NewServices(repos, worker, c, store, cfg)

	scheduleJobs(worker, svcs)

	h := handlers.NewHandlers(svcs)
	router := setupRouter(cfg, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %s", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("Server error: %v", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("Forced shutdown: %v", err))
	}

	worker.Shutdown()
	sentry.Flush(2 * time.Second)

	logger.Info("Server stopped")
}

// scheduleJobs registers the recurring portfolio maintenance jobs
func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Installments past their due date are flagged before loans are
	// evaluated for default
	worker.ScheduleEveryImmediate(24*time.Hour, func(ctx context.Context) error {
		if err := svcs.Repayment.MarkOverdueItems(ctx); err != nil {
			return err
		}
		return svcs.Loan.MarkDefaultedLoans(ctx)
	})

	worker.ScheduleEvery(24*time.Hour, func(ctx context.Context) error {
		return svcs.Loan.SendDueTomorrowReminders(ctx)
	})

	// Backfill schedules for loans disbursed before schedule generation
	// existed
	worker.ScheduleEveryImmediate(6*time.Hour, func(ctx context.Context) error {
		return svcs.Loan.GenerateMissingSchedules(ctx)
	})
}

func setupRouter(cfg *config.Config, h *handlers.Handlers) *gin.Engine {
	router := gin.New()

	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")

	// Public routes
	v1.GET("/health", h.Health.Index)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/recovery", h.Auth.SendRecoveryCode)
		auth.POST("/recovery/verify", h.Auth.VerifyRecoveryCode)
		auth.POST("/recovery/reset", h.Auth.ResetPassword)
	}

	// Authenticated routes
	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.JWTSecret))
	{
		protected.POST("/auth/logout", h.Auth.Logout)

		protected.GET("/users/me", h.User.Me)
		protected.PUT("/users/change_password", h.User.ChangePassword)

		unions := protected.Group("/unions")
		{
			unions.GET("", h.Union.Index)
			unions.POST("", h.Union.Create)
			unions.GET("/:union_id", h.Union.Show)
			unions.PUT("/:union_id", h.Union.Update)
			unions.GET("/:union_id/members", h.UnionMember.Index)
			unions.POST("/:union_id/members", h.UnionMember.Create)
		}

		members := protected.Group("/members")
		{
			members.GET("", h.UnionMember.Search)
			members.GET("/:member_id", h.UnionMember.Show)
			members.PUT("/:member_id", h.UnionMember.Update)
			members.DELETE("/:member_id", h.UnionMember.Delete)
			members.GET("/:member_id/documents", h.MemberDocument.Index)
			members.POST("/:member_id/documents", h.MemberDocument.Upload)
			members.GET("/:member_id/documents/:document_id", h.MemberDocument.Download)
			members.DELETE("/:member_id/documents/:document_id", h.MemberDocument.Delete)
		}

		protected.GET("/loan_types", h.LoanType.Index)

		loans := protected.Group("/loans")
		{
			loans.GET("", h.Loan.Index)
			loans.POST("", h.Loan.Create)
			loans.GET("/stats", h.Loan.GetStats)
			loans.GET("/export", h.Loan.Export)
			loans.GET("/:loan_id", h.Loan.Show)
			loans.GET("/:loan_id/metrics", h.Loan.Metrics)
			loans.POST("/:loan_id/submit", h.Loan.Submit)
			loans.POST("/:loan_id/disburse", h.Loan.Disburse)
		}

		repayments := protected.Group("/repayments")
		{
			repayments.GET("", h.Repayment.Index)
			repayments.POST("", h.Repayment.Create)
			repayments.GET("/summary", h.Repayment.Summary)
			repayments.GET("/export", h.Repayment.Export)
			repayments.GET("/:repayment_id", h.Repayment.Show)
			repayments.GET("/:repayment_id/receipt", h.Repayment.Receipt)
		}

		protected.GET("/reports/portfolio", h.Repayment.PortfolioReport)

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.Notification.Index)
			// Static route must come before the parameterized one
			notifications.PUT("/mark_all_read", h.Notification.MarkAllAsRead)
			notifications.PUT("/:notification_id", h.Notification.Update)
			notifications.DELETE("/:notification_id", h.Notification.Delete)
		}

		protected.GET("/jobs/status", h.Job.Status)

		// Supervisor and admin routes
		elevated := protected.Group("")
		elevated.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor))
		{
			elevated.GET("/users", h.User.Index)
			elevated.GET("/users/:user_id", h.User.Show)
			elevated.POST("/users", h.User.Create)
			elevated.PUT("/users/:user_id", h.User.Update)
			elevated.POST("/users/:user_id/resend_confirmation", h.User.ResendConfirmation)
			elevated.POST("/loans/:loan_id/approve", h.Loan.Approve)
			elevated.POST("/loans/:loan_id/cancel", h.Loan.Cancel)
			elevated.GET("/audit_logs", h.Audit.Index)
		}

		// Admin-only routes
		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.DELETE("/users/:user_id", h.User.Delete)
			admin.POST("/users/:user_id/restore", h.User.Restore)
			admin.PUT("/users/:user_id/toggle_status", h.User.ToggleStatus)
			admin.PUT("/users/:user_id/force_password", h.User.ForceChangePassword)
			admin.POST("/loan_types", h.LoanType.Create)
			admin.PUT("/loan_types/:loan_type_id", h.LoanType.Update)
			admin.DELETE("/loan_types/:loan_type_id", h.LoanType.Delete)
			admin.DELETE("/unions/:union_id", h.Union.Delete)
		}
	}

	return router
}
