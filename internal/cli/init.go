// Package cli provides the initialization shared by cmd/rbudget,
// cmd/rbudget-worker and cmd/rbudget-server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rbudget/internal/backend"
	"rbudget/internal/config"
	apphttp "rbudget/internal/http"
	applog "rbudget/internal/log"
	"rbudget/internal/services"
)

// SetupLogger creates the process logger at the named level writing text
// records to w, and makes it the slog default.
func SetupLogger(w io.Writer, level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the configuration from the environment and
// exits the process when it is invalid.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// CreateSource opens the scenario backend named by the configuration.
func CreateSource(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}
	logger.Info("Scenario backend ready", "backend", backendCfg.Type.String())
	return result, nil
}

// ProjectionConfig maps the configuration onto the projection service.
func ProjectionConfig(cfg *config.Config) services.ProjectionServiceConfig {
	return services.ProjectionServiceConfig{
		CacheSize:     cfg.ProjectionCacheSize,
		CacheTTL:      cfg.ProjectionCacheTTL,
		MaxConcurrent: cfg.MaxConcurrentProjections,
	}
}

// ServerConfig maps the configuration onto the HTTP server.
func ServerConfig(cfg *config.Config) apphttp.Config {
	serverCfg := apphttp.DefaultConfig()
	serverCfg.Addr = ":" + cfg.Port
	serverCfg.AllowedOrigins = cfg.AllowedOrigins
	serverCfg.TrustedProxies = cfg.TrustedProxies
	serverCfg.RateLimit.Requests = cfg.RateLimitPerMinute
	serverCfg.RateLimit.Window = time.Minute
	serverCfg.DefaultDays = cfg.ProjectionDays
	return serverCfg
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup. The channel is closed once cleanup returns or timeout passes.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	return gracefulShutdown(logger, timeout, cleanup, syscall.SIGINT, syscall.SIGTERM)
}

func gracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context), signals ...os.Signal) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signals...)

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		if cleanup == nil {
			return
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			cleanup(shutdownCtx)
			close(finished)
		}()
		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
