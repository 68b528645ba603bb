package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/config"
	"quizstack/internal/database"
	"quizstack/internal/handlers"
	"quizstack/internal/logger"
	"quizstack/internal/metrics"
	"quizstack/internal/repository"
	"quizstack/internal/security"
	"quizstack/internal/service"
	"quizstack/migrations"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		// No configured logger yet
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.New(logger.Options{Debug: cfg.IsDebug(), LogFile: cfg.LogFile})
	defer log.Sync()

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Serve /healthz with startup progress while the rest initializes
	status := handlers.NewStartupStatus(handlers.DefaultStartupSteps()...)
	bootstrap := handlers.NewHealthHandler(status, nil, nil, log)
	var current atomic.Pointer[http.Handler]
	setHandler := func(h http.Handler) { current.Store(&h) }
	setHandler(bootstrap.RequireReady(http.HandlerFunc(bootstrap.Health)))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			(*current.Load()).ServeHTTP(w, r)
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", addr), zap.String("mode", cfg.AppMode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	status.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	log.Info("Database connection established", zap.String("type", cfg.DatabaseType))
	status.CompleteStep(handlers.StepDatabase)

	status.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(migrations.Source(cfg.MigrationsPath), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	status.CompleteStep(handlers.StepMigrations)

	status.SetCurrentStep(handlers.StepServices)

	// Initialize repositories
	quizRepo := repository.NewQuizRepository(db)
	resultRepo := repository.NewResultRepository(db)

	// Initialize services
	notifier, err := service.NewNotificationService(ctx, service.NotificationSettings{
		AWSRegion: cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
		ToEmail:   cfg.ResultsEmailTo,
		Debug:     cfg.EmailDebug,
	}, log)
	if err != nil {
		log.Warn("Result notifications disabled", zap.Error(err))
		notifier = nil
	}
	resultService := service.NewResultService(resultRepo, quizRepo, notifier, log)
	bankService := service.NewBankService(quizRepo, resultRepo, log)
	tokens := security.NewTokenIssuer(cfg.TokenSecret, cfg.SessionTTL)
	quizService := service.NewQuizService(ctx, quizRepo, resultService, tokens, service.SessionDefaults{
		Duration:        cfg.QuizDuration,
		TickInterval:    cfg.TickInterval,
		TransitionDelay: cfg.TransitionDelay,
		TTL:             cfg.SessionTTL,
	}, log)

	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	admin := security.NewAdminAuth(cfg.AdminUsername, cfg.AdminPasswordHash)
	if admin == nil {
		log.Warn("ADMIN_PASSWORD_HASH not set, admin routes are disabled")
	}
	status.CompleteStep(handlers.StepServices)

	status.SetCurrentStep(handlers.StepSeed)
	if err := bankService.SeedDefault(); err != nil {
		log.Warn("Failed to seed default quiz", zap.Error(err))
	}
	if cfg.SeedFile != "" {
		if imported, err := bankService.Import(cfg.SeedFile); err != nil {
			log.Warn("Failed to import seed file", zap.String("file", cfg.SeedFile), zap.Error(err))
		} else {
			log.Info("Seed file imported", zap.String("file", cfg.SeedFile), zap.Int("quizzes", len(imported)))
		}
	}
	status.CompleteStep(handlers.StepSeed)

	// Background workers
	go quizService.RunCleanup(ctx, cfg.CleanupInterval)
	go limiter.Run(ctx)

	routes := &handlers.Routes{
		Middleware: handlers.NewMiddleware(quizService, limiter, admin, log),
		Quiz:       handlers.NewQuizHandler(quizService, resultService, log),
		Stream:     handlers.NewStreamHandler(cfg.AllowedOrigins, log),
		Admin:      handlers.NewAdminHandler(bankService, resultService, log),
		Health:     handlers.NewHealthHandler(status, db, quizService, log),
		Metrics:    metrics.Handler(),
		Log:        log,
	}
	setHandler(routes.Handler())
	status.MarkReady()
	log.Info("Server ready", zap.String("addr", addr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}

	// Running sessions are recorded as abandoned before the database closes
	quizService.Shutdown()
	cancel()
}
