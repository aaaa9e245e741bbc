package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Dispatcher produces the report of one user.
type Dispatcher interface {
	DispatchUser(ctx context.Context, userID int64, month time.Time, force bool) (services.DispatchOutcome, error)
}

// ReportWorker handles report jobs consumed from AMQP.
type ReportWorker struct {
	dispatcher Dispatcher

	sent    atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func NewReportWorker(d Dispatcher) *ReportWorker {
	return &ReportWorker{dispatcher: d}
}

// HandleReportJob dispatches one job. Missing users and malformed months are
// reported as permanent so the message is dropped rather than requeued. A mail
// failure is requeued once; on redelivery it is dropped and the report stays
// undelivered for the next run.
func (w *ReportWorker) HandleReportJob(ctx context.Context, msg *amqp.ReportJobMessage) error {
	month, err := msg.MonthStart()
	if err != nil {
		w.failed.Add(1)
		return amqp.Permanent(fmt.Errorf("parse job month: %w", err))
	}

	slog.InfoContext(ctx, "Processing report job",
		"user_id", msg.UserID,
		"month", msg.Month,
		"force", msg.Force)

	outcome, err := w.dispatcher.DispatchUser(ctx, msg.UserID, month, msg.Force)
	if err != nil {
		w.failed.Add(1)
		if errors.Is(err, core.ErrNotFound) {
			return amqp.Permanent(fmt.Errorf("dispatch report: %w", err))
		}
		if errors.Is(err, services.ErrDeliveryFailed) && msg.Redelivered {
			return amqp.Permanent(fmt.Errorf("dispatch report after redelivery: %w", err))
		}
		return fmt.Errorf("dispatch report: %w", err)
	}

	switch outcome {
	case services.OutcomeSkipped:
		w.skipped.Add(1)
	default:
		w.sent.Add(1)
	}
	return nil
}

// Stats returns counters since start.
func (w *ReportWorker) Stats() services.DispatchStats {
	sent, skipped, failed := int(w.sent.Load()), int(w.skipped.Load()), int(w.failed.Load())
	return services.DispatchStats{
		Users:   sent + skipped + failed,
		Sent:    sent,
		Skipped: skipped,
		Failed:  failed,
	}
}
