// Command send-monthly-reports mails every user their monthly report, or
// queues one job per user for report-worker with --enqueue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	monthFlag := flag.String("month", "", "month to report as YYYY-MM (default: previous month)")
	force := flag.Bool("force", false, "re-send reports already delivered")
	enqueue := flag.Bool("enqueue", false, "publish one job per user to AMQP instead of sending directly")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentReports)
	cfg := cli.LoadAndValidateConfig(logger)

	var month time.Time
	if *monthFlag != "" {
		m, err := core.ParseMonth(*monthFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --month %q: expected YYYY-MM\n", *monthFlag)
			os.Exit(2)
		}
		month = m
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	backendResult := cli.InitStore(ctx, logger, cfg)
	defer func() {
		if err := backendResult.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()
	store := backendResult.Store

	if *enqueue {
		if cfg.AMQPURL == "" {
			logger.Error("--enqueue requires AMQP_URL")
			os.Exit(1)
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		queued, err := services.NewReportScheduler(store, client, cfg.ReportPageSize).Enqueue(ctx, month, *force)
		if err != nil {
			logger.Error("Enqueue failed", "error", err, "queued", queued)
			os.Exit(1)
		}
		logger.Info("Report jobs queued", "queued", queued)
		return
	}

	dispatcher, err := cli.NewReportDispatcher(ctx, logger, cfg, store)
	if err != nil {
		logger.Error("Failed to initialize report dispatcher", "error", err)
		os.Exit(1)
	}
	stats, err := dispatcher.GenerateMonthlyReports(ctx, month, services.DispatchOptions{Force: *force})
	if err != nil {
		logger.Error("Monthly report run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("month=%s users=%d sent=%d skipped=%d failed=%d\n",
		dispatcher.TargetMonth(month).Format(core.MonthLayout), stats.Users, stats.Sent, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
