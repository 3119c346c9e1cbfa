package main

import (
	"context"
	"net"
	"os"
	"time"

	"rbudget/internal/cache"
	"rbudget/internal/cli"
	apphttp "rbudget/internal/http"
	applog "rbudget/internal/log"
	"rbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger(os.Stdout, "info")
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel)

	source, err := cli.CreateSource(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize scenario backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer source.Close()

	projections := services.NewProjectionService(source.Source, cli.ProjectionConfig(cfg), logger)
	caches := cache.NewManager(logger)
	caches.Register(projections.Cache())

	writer, writable := source.Writer()
	if !writable {
		logger.Info("Scenario backend is read only", "backend", cfg.DataBackend)
	}

	serverCfg := cli.ServerConfig(cfg)

	srv, err := apphttp.NewServer(serverCfg, projections, writer, logger)
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", serverCfg.Addr)
	if err != nil {
		logger.Error("Failed to listen", "addr", serverCfg.Addr, applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
	})
	caches.StartCleanup(ctx, cfg.ProjectionCacheTTL)

	go func() {
		if err := srv.Serve(ln); err != nil {
			logger.Error("Server failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
