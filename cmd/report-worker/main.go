package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"

	"github.com/robfig/cron/v3"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	backendResult := cli.InitStore(context.Background(), logger, cfg)
	defer func() {
		if err := backendResult.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()
	store := backendResult.Store

	dispatcher, err := cli.NewReportDispatcher(context.Background(), logger, cfg, store)
	if err != nil {
		logger.Error("Failed to initialize report dispatcher", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(dispatcher)

	var scheduler *cron.Cron
	if cfg.ReportSchedule != "" {
		enqueuer := services.NewReportScheduler(store, amqpClient, cfg.ReportPageSize)
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.ReportSchedule, func() {
			runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			queued, err := enqueuer.Enqueue(runCtx, time.Time{}, false)
			if err != nil {
				logger.Error("Scheduled report enqueue failed", "error", err, "queued", queued)
				return
			}
			logger.Info("Scheduled report enqueue complete", "queued", queued)
		})
		if err != nil {
			logger.Error("Invalid report schedule", "error", err, "schedule", cfg.ReportSchedule)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("Report schedule enabled", "schedule", cfg.ReportSchedule)
	} else {
		logger.Info("REPORT_SCHEDULE not set, consuming queued jobs only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
		stats := reportWorker.Stats()
		logger.Info("Report worker totals",
			"sent", stats.Sent,
			"skipped", stats.Skipped,
			"failed", stats.Failed)
	})

	go func() {
		err := amqpClient.ConsumeReportJobs(ctx, reportWorker.HandleReportJob)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped")
}
