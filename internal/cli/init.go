// Package cli holds the startup steps shared by the fintrack commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/mail"
	"fintrack/internal/ports"
	"fintrack/internal/services"
	"fintrack/internal/sheets/google"

	"github.com/joho/godotenv"
)

// SetupLogger installs a text logger on stdout at the configured level.
func SetupLogger(level string, component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	if lvl, err := (&config.Config{LogLevel: level}).SlogLevel(); err == nil {
		cfg.Level = lvl
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it is invalid.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the configured backend or exits the process.
func InitStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// NewMailer returns the SMTP transport, or a log-only transport when no SMTP
// host is configured.
func NewMailer(logger *applog.Logger, cfg *config.Config) (ports.Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, reports will only be logged and stored undelivered")
		return mail.NewLogMailer(logger.Logger), nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// NewReportDispatcher wires aggregator, mailer and the optional Sheets archive.
func NewReportDispatcher(ctx context.Context, logger *applog.Logger, cfg *config.Config, store ports.Store) (*services.ReportDispatcher, error) {
	mailer, err := NewMailer(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	d := services.NewReportDispatcher(store, store, services.NewAggregator(store), mailer,
		services.NewLocalizer(cfg.Locale),
		services.ReportDispatcherConfig{
			PageSize:       cfg.ReportPageSize,
			Concurrency:    cfg.ReportConcurrency,
			FallbackDomain: cfg.MailFallbackDomain,
		})

	if cfg.ArchiveEnabled() {
		archive, err := google.NewReportArchive(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Warn("Google Sheets archive disabled", "error", err)
		} else {
			d = d.WithArchiver(archive)
		}
	}
	return d, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs before cancellation, bounded by timeout; done closes afterwards.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
