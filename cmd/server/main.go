package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"weddingrsvp/internal/cache"
	"weddingrsvp/internal/config"
	"weddingrsvp/internal/database"
	"weddingrsvp/internal/handlers"
	"weddingrsvp/internal/logging"
	"weddingrsvp/internal/repository"
	"weddingrsvp/internal/security"
	"weddingrsvp/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database connection established", zap.String("type", db.Dialect.Name()))

	ctx := context.Background()
	applied, err := db.RunMigrations(ctx)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("migrations completed", zap.Strings("applied", applied))

	guestRepo := repository.NewGuestRepository(db)
	logRepo := repository.NewChangeLogRepository(db)
	eventRepo := repository.NewEventRepository(db)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.SiteBaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize email service", zap.Error(err))
	}

	fileCache, err := cache.New(cfg.CacheDir, cfg.CacheTTL, logger)
	if err != nil {
		logger.Fatal("failed to initialize cache", zap.Error(err))
	}

	authService, err := service.NewAdminAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash,
		security.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialize admin auth", zap.Error(err))
	}

	guestService := service.NewGuestService(db, guestRepo, logRepo, emailService, logger)
	entertainmentService := service.NewEntertainmentService(fileCache, eventRepo, logger)

	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()

	handler := handlers.NewRouter(handlers.Router{
		Middleware:    handlers.NewMiddleware(authService, limiter, logger),
		Health:        handlers.NewHealthHandler(db, logger),
		Guest:         handlers.NewGuestHandler(guestService, logger),
		Auth:          handlers.NewAuthHandler(authService, logger),
		Admin:         handlers.NewAdminHandler(guestService, entertainmentService, logger),
		Entertainment: handlers.NewEntertainmentHandler(entertainmentService, logger),
	}, logger)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
