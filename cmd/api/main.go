package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/config"
	"finsight/internal/database"
	"finsight/internal/email"
	"finsight/internal/handlers"
	"finsight/internal/insights"
	"finsight/internal/jobs"
	"finsight/internal/jobs/inmemory"
	"finsight/internal/logger"
	"finsight/internal/middleware"
	"finsight/internal/scheduler"
	"finsight/internal/services"
	"finsight/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Email delivery
	sender := email.NewResendClient(appConfig.ResendAPIKey, appConfig.EmailFrom)

	// Insight generation: model-backed with static fallback
	var generator insights.Generator
	if appConfig.GeminiAPIKey != "" {
		gemini, err := insights.NewGeminiGenerator(ctx, appConfig.GeminiAPIKey, appConfig.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to create insight generator: %w", err)
		}
		generator = insights.Fallback(insights.NewGenerator(gemini))
	} else {
		log.Warn("GEMINI_API_KEY not set, reports will use fallback insights")
		generator = insights.Fallback(insights.Disabled())
	}

	// Initialize services
	db := dbManager.DB()
	queue := inmemory.NewQueue(1024, appConfig.QueueWorkers, appConfig.PerUserConcurrency)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	transactionService := services.NewTransactionService(db, accountService)
	recurringService := services.NewRecurringService(db, accountService, queue)
	budgetService := services.NewBudgetService(db, accountService, sender)
	reportService := services.NewReportService(db, userService, generator, sender)

	// Start the job consumer
	if err := queue.Start(ctx, func(ctx context.Context, job *jobs.ProcessRecurringJob) error {
		return recurringService.ProcessRecurring(ctx, job.TransactionID, job.UserID)
	}); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}

	// Start the periodic job scheduler
	var sched *scheduler.Scheduler
	if appConfig.SchedulerEnabled {
		sched = scheduler.New(recurringService, budgetService, reportService)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	jobHandler := handlers.NewJobHandler(recurringService, budgetService, reportService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id/default", accountHandler.SetDefault)
	accounts.GET("/:id/transactions", transactionHandler.ListAccountTransactions)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Budget routes
	budgets := protected.Group("/budget")
	budgets.GET("", budgetHandler.GetBudget)
	budgets.PUT("", budgetHandler.UpsertBudget)

	// Manual job triggers
	jobsGroup := protected.Group("/jobs")
	jobsGroup.POST("/recurring/scan", jobHandler.TriggerRecurringScan)
	jobsGroup.POST("/budget-alerts", jobHandler.TriggerBudgetAlerts)
	jobsGroup.POST("/monthly-reports", jobHandler.TriggerMonthlyReports)

	srv := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infof("Starting Finsight API server on port %s", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Errorf("Scheduler shutdown error: %v", err)
		}
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Errorf("Queue shutdown error: %v", err)
	}

	return nil
}
