package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-funnel-tracker/internal/auth"
	"github.com/justsurfingit/job-funnel-tracker/internal/config"
	"github.com/justsurfingit/job-funnel-tracker/internal/database"
	"github.com/justsurfingit/job-funnel-tracker/internal/handlers"
	"github.com/justsurfingit/job-funnel-tracker/internal/ratelimit"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/justsurfingit/job-funnel-tracker/internal/services"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	setupLogger(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	store, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	// 3. Core services
	llmService, err := services.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to initialize LLM", slog.Any("error", err))
		os.Exit(1)
	}
	jobService := services.NewJobService(store)
	resumeService := services.NewResumeService(store, llmService)
	aiService := services.NewAIService(llmService, jobService, resumeService)
	authService := services.NewAuthService(store, auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL))

	// 4. Rate limiting: Redis when configured, otherwise per-process buckets
	limiter := newLimiter(ctx, cfg)

	// 5. Gmail watcher
	if cfg.InboxEnabled() {
		startInboxWatcher(ctx, cfg, store, jobService, llmService)
	}

	// 6. HTTP
	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Jobs:           handlers.NewJobHandler(llmService, jobService),
		Auth:           handlers.NewAuthHandler(authService),
		AI:             handlers.NewAIHandler(aiService, resumeService),
		AuthService:    authService,
		Limiter:        limiter,
		AuthRateLimit:  cfg.AuthRateLimit,
		AIRateLimit:    cfg.AIRateLimit,
		RateWindow:     cfg.RateWindow,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", slog.String("port", cfg.HTTPPort), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func setupLogger(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		fs, err := repository.OpenFileStore(cfg.JSONDBPath)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.DriverSQLite, config.DriverPostgres:
		dsn := cfg.DatabaseURL
		if cfg.StoreDriver == config.DriverSQLite {
			dsn = cfg.SQLitePath
		}
		db, err := database.Connect(database.Config{
			Driver:          cfg.StoreDriver,
			DSN:             dsn,
			MaxOpenConns:    cfg.DBMaxOpenConn,
			MaxIdleConns:    cfg.DBMaxIdleConn,
			ConnMaxLifetime: cfg.DBConnMaxLife,
		})
		if err != nil {
			return nil, err
		}
		return repository.NewGormStore(db), nil
	}
	return nil, errors.New("unknown store driver " + cfg.StoreDriver)
}

func newLimiter(ctx context.Context, cfg *config.Config) ratelimit.Limiter {
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		rl, err := ratelimit.NewRedisLimiterFromURL(pingCtx, cfg.RedisURL)
		if err == nil {
			slog.Info("rate limiting via redis")
			return rl
		}
		slog.Warn("redis unavailable, using in-memory rate limiting", slog.Any("error", err))
	}
	mem := ratelimit.NewMemoryLimiter()
	go mem.RunSweeper(ctx, 10*time.Minute)
	return mem
}

func startInboxWatcher(ctx context.Context, cfg *config.Config, store repository.Store, jobs *services.JobService, llm *services.LLMService) {
	if !llm.Enabled() {
		slog.Warn("gmail watcher needs GEMINI_API_KEY to classify emails, not starting")
		return
	}
	httpClient, err := auth.GmailClient(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile)
	if err != nil {
		if url, urlErr := auth.ConsentURL(cfg.GmailCredentialsFile); urlErr == nil {
			slog.Warn("authorize gmail access, then save the token file", slog.String("url", url))
		}
		slog.Error("gmail watcher disabled", slog.Any("error", err))
		return
	}
	gmailService, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		slog.Error("failed to create gmail service", slog.Any("error", err))
		return
	}
	slog.Info("gmail service connected", slog.String("owner", cfg.InboxOwnerEmail))

	watcher := services.NewEmailService(store, store, jobs, llm, services.NewMatcherService(), gmailService, cfg.InboxOwnerEmail)
	go watcher.Run(ctx, cfg.InboxPollInterval)
}
