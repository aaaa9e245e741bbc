package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"golang.org/x/sync/errgroup"
)

const (
	defaultReportPageSize = 100
	defaultFallbackDomain = "example.com"
)

// DispatchOutcome is what happened to one user during a run.
type DispatchOutcome int

const (
	OutcomeSent DispatchOutcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o DispatchOutcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ErrDeliveryFailed marks a report that was stored but could not be mailed.
var ErrDeliveryFailed = errors.New("report delivery failed")

type (
	ReportDispatcherConfig struct {
		PageSize       int
		Concurrency    int
		FallbackDomain string
	}

	DispatchOptions struct {
		// Force re-sends reports already marked delivered.
		Force bool
	}

	DispatchStats struct {
		Users   int
		Sent    int
		Skipped int
		Failed  int
	}
)

// ReportDispatcher produces, mails and records monthly reports.
type ReportDispatcher struct {
	users    ports.UserStore
	reports  ports.ReportStore
	agg      *Aggregator
	mailer   ports.Mailer
	archiver ports.ReportArchiver
	loc      *Localizer
	cfg      ReportDispatcherConfig
	now      func() time.Time
}

func NewReportDispatcher(users ports.UserStore, reports ports.ReportStore, agg *Aggregator,
	mailer ports.Mailer, loc *Localizer, cfg ReportDispatcherConfig) *ReportDispatcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultReportPageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.FallbackDomain == "" {
		cfg.FallbackDomain = defaultFallbackDomain
	}
	if loc == nil {
		loc = NewLocalizer("")
	}
	return &ReportDispatcher{
		users:   users,
		reports: reports,
		agg:     agg,
		mailer:  mailer,
		loc:     loc,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithArchiver enables copying delivered snapshots to an external archive.
func (d *ReportDispatcher) WithArchiver(a ports.ReportArchiver) *ReportDispatcher {
	d.archiver = a
	return d
}

// TargetMonth resolves the month a run covers: the given one, or the
// previous calendar month when zero.
func (d *ReportDispatcher) TargetMonth(month time.Time) time.Time {
	if month.IsZero() {
		return core.PreviousMonth(d.now())
	}
	return core.MonthStart(month)
}

// GenerateMonthlyReports walks every user in id pages and dispatches their
// report. A failing user is logged and counted, never aborting the run.
func (d *ReportDispatcher) GenerateMonthlyReports(ctx context.Context, month time.Time, opts DispatchOptions) (DispatchStats, error) {
	target := d.TargetMonth(month)
	start := time.Now()

	slog.InfoContext(ctx, "Starting monthly report run",
		applog.FieldOperation, applog.OpDispatch,
		"month", target.Format(core.MonthLayout),
		"force", opts.Force,
		"page_size", d.cfg.PageSize,
		"concurrency", d.cfg.Concurrency)

	var (
		mu    sync.Mutex
		stats DispatchStats
	)
	record := func(o DispatchOutcome) {
		mu.Lock()
		defer mu.Unlock()
		stats.Users++
		switch o {
		case OutcomeSent:
			stats.Sent++
		case OutcomeSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)

	var afterID int64
	var listErr error
	for {
		page, err := d.users.ListUsers(ctx, afterID, d.cfg.PageSize)
		if err != nil {
			listErr = fmt.Errorf("list users after %d: %w", afterID, err)
			break
		}
		for _, u := range page {
			g.Go(func() error {
				outcome, err := d.dispatch(gctx, u, target, opts.Force)
				if err != nil {
					slog.ErrorContext(gctx, "Monthly report failed",
						applog.FieldOperation, applog.OpDispatch,
						"user_id", u.ID, "month", target.Format(core.MonthLayout), "error", err)
				}
				record(outcome)
				return nil
			})
		}
		if len(page) < d.cfg.PageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Monthly report run finished",
		applog.FieldOperation, applog.OpDispatch,
		"month", target.Format(core.MonthLayout),
		"users", stats.Users,
		"sent", stats.Sent,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", time.Since(start))

	return stats, listErr
}

// DispatchUser runs the report of a single user.
func (d *ReportDispatcher) DispatchUser(ctx context.Context, userID int64, month time.Time, force bool) (DispatchOutcome, error) {
	u, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load user: %w", err)
	}
	return d.dispatch(ctx, u, d.TargetMonth(month), force)
}

func (d *ReportDispatcher) dispatch(ctx context.Context, u core.User, month time.Time, force bool) (DispatchOutcome, error) {
	if !force {
		existing, err := d.reports.GetReport(ctx, u.ID, month)
		switch {
		case err == nil && existing.Delivered:
			slog.DebugContext(ctx, "Report already delivered, skipping",
				"user_id", u.ID, "month", month.Format(core.MonthLayout))
			return OutcomeSkipped, nil
		case err != nil && !errors.Is(err, core.ErrNotFound):
			return OutcomeFailed, fmt.Errorf("load report: %w", err)
		}
	}

	summary, err := d.agg.Summarize(ctx, u.ID, month)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("summarize: %w", err)
	}

	subject, body := FormatReport(summary, d.loc)
	msg := core.MailMessage{To: u.MailAddress(d.cfg.FallbackDomain), Subject: subject, Body: body}
	sendErr := d.mailer.Send(ctx, msg)

	report := core.MonthlyReport{
		UserID:    u.ID,
		Month:     month,
		Summary:   summary.Snapshot(),
		Delivered: sendErr == nil,
	}
	if err := d.reports.UpsertReport(ctx, report); err != nil {
		return OutcomeFailed, fmt.Errorf("save report: %w", err)
	}
	if errors.Is(sendErr, core.ErrMailNotSent) {
		slog.WarnContext(ctx, "Mail transport disabled, report stored undelivered",
			applog.FieldOperation, applog.OpDispatch,
			"user_id", u.ID, "month", month.Format(core.MonthLayout))
		return OutcomeSkipped, nil
	}
	if sendErr != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrDeliveryFailed, sendErr)
	}

	if d.archiver != nil {
		if err := d.archiver.ArchiveReport(ctx, u, report); err != nil {
			slog.WarnContext(ctx, "Failed to archive report",
				"user_id", u.ID, "month", month.Format(core.MonthLayout), "error", err)
		}
	}

	slog.InfoContext(ctx, "Monthly report sent",
		"user_id", u.ID, "to", msg.To, "month", month.Format(core.MonthLayout))
	return OutcomeSent, nil
}
