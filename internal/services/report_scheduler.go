package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// ReportScheduler fans a monthly run out as one queued job per user.
type ReportScheduler struct {
	users     ports.UserStore
	publisher ports.ReportJobPublisher
	pageSize  int
	now       func() time.Time
}

func NewReportScheduler(users ports.UserStore, publisher ports.ReportJobPublisher, pageSize int) *ReportScheduler {
	if pageSize <= 0 {
		pageSize = defaultReportPageSize
	}
	return &ReportScheduler{users: users, publisher: publisher, pageSize: pageSize, now: time.Now}
}

// Enqueue publishes a report job for every user and returns how many were
// queued. A zero month means the previous calendar month.
func (s *ReportScheduler) Enqueue(ctx context.Context, month time.Time, force bool) (int, error) {
	target := core.MonthStart(month)
	if month.IsZero() {
		target = core.PreviousMonth(s.now())
	}

	queued, failed := 0, 0
	var afterID int64
	for {
		page, err := s.users.ListUsers(ctx, afterID, s.pageSize)
		if err != nil {
			return queued, fmt.Errorf("list users after %d: %w", afterID, err)
		}
		for _, u := range page {
			if err := s.publisher.PublishReportJob(ctx, u.ID, target, force); err != nil {
				slog.ErrorContext(ctx, "Failed to enqueue report job",
					"user_id", u.ID, "month", target.Format(core.MonthLayout), "error", err)
				failed++
				continue
			}
			queued++
		}
		if len(page) < s.pageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	slog.InfoContext(ctx, "Report jobs enqueued",
		"month", target.Format(core.MonthLayout), "queued", queued, "failed", failed)
	return queued, nil
}
