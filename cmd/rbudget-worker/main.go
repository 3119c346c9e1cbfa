package main

import (
	"context"
	"errors"
	"os"
	"time"

	"rbudget/internal/amqp"
	"rbudget/internal/cache"
	"rbudget/internal/cli"
	applog "rbudget/internal/log"
	"rbudget/internal/services"
	"rbudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger(os.Stdout, "info")
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel)

	logger.Info("Starting rbudget-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	source, err := cli.CreateSource(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize scenario backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer source.Close()

	projections := services.NewProjectionService(source.Source, cli.ProjectionConfig(cfg), logger)
	caches := cache.NewManager(logger)
	caches.Register(projections.Cache())

	amqpClient, err := amqp.NewClient(amqp.Options{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		RequestQueue: cfg.AMQPRequestQueue,
		ResultQueue:  cfg.AMQPResultQueue,
		ContentType:  cfg.AMQPContentType,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	projectionWorker := worker.NewProjectionWorker(projections, amqpClient, cfg.ProjectionDays, logger)

	scheduler := worker.NewScheduler(projectionWorker, logger)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		scheduler.Stop()
		caches.Stop()
	})

	if cfg.ProjectionSchedule != "" {
		for _, name := range cfg.ScheduledScenarios {
			if err := scheduler.AddProjection(ctx, cfg.ProjectionSchedule, name, cfg.ProjectionDays); err != nil {
				logger.Error("Failed to schedule projection", applog.FieldScenario, name, applog.FieldError, err)
				os.Exit(1)
			}
		}
	} else {
		logger.Info("No PROJECTION_SCHEDULE set, answering requests only")
	}
	scheduler.Start()
	caches.StartCleanup(ctx, cfg.ProjectionCacheTTL)

	go func() {
		err := amqpClient.ConsumeRequests(ctx, projectionWorker.HandleRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Request consumption stopped", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
