package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chorequest/internal/app"
	"chorequest/internal/config"
	"chorequest/internal/handlers"
	"chorequest/internal/logger"
	"chorequest/internal/security"
	"chorequest/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logr.Sync()

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("JWT_SECRET must be set to serve the API: %w", err)
	}

	startup := handlers.NewStartupStatus()
	startup.SetCurrentStep(handlers.StepDatabase)
	boot := handlers.NewBootHandler(startup)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      boot,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	steps := map[app.Step]string{
		app.StepDatabase:   handlers.StepDatabase,
		app.StepMigrations: handlers.StepMigrations,
		app.StepCache:      handlers.StepCache,
		app.StepServices:   handlers.StepServices,
	}
	a, err := app.New(ctx, cfg, logr, app.Options{
		OnStep: func(s app.Step) { startup.CompleteStep(steps[s]) },
	})
	if err != nil {
		shutdown(server, logr)
		return err
	}
	defer a.Close()

	var limiter handlers.RequestLimiter
	if cfg.APIRateLimit > 0 {
		rl := security.NewRateLimiter(cfg.APIRateLimit, time.Minute)
		go rl.Run(ctx, time.Hour)
		limiter = rl
	}

	api := handlers.NewAPI(a.Insights, a.Grid, a.Digest, tokens, logr, handlers.APIOptions{
		Limiter: limiter,
		Startup: startup,
	})
	boot.Mount(api.Handler())
	startup.MarkReady()
	logr.Info("server ready", zap.String("addr", addr))

	if cfg.DigestInterval > 0 {
		go runDigestSchedule(ctx, a.Digest, cfg.DigestInterval, logr)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return shutdown(server, logr)
}

func shutdown(server *http.Server, logr *logger.Logger) error {
	logr.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// runDigestSchedule sends the weekly digest every interval until ctx is done
func runDigestSchedule(ctx context.Context, digest *service.DigestService, interval time.Duration, logr *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := digest.Run(ctx, service.DigestOptions{})
			if err != nil {
				logr.Error("scheduled digest run failed", zap.Error(err))
				continue
			}
			logr.Info("scheduled digest run complete",
				zap.Int("sent", summary.Sent),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped),
			)
		}
	}
}
