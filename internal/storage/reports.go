package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

const reportColumns = `user_id, month, summary, delivered, created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (core.MonthlyReport, error) {
	var rep core.MonthlyReport
	var month, summary, created, updated string
	var delivered int
	if err := row.Scan(&rep.UserID, &month, &summary, &delivered, &created, &updated); err != nil {
		return core.MonthlyReport{}, err
	}
	m, err := parseDate(month)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	if err := json.Unmarshal([]byte(summary), &rep.Summary); err != nil {
		return core.MonthlyReport{}, fmt.Errorf("decode report summary: %w", err)
	}
	rep.Month = m
	rep.Delivered = delivered != 0
	rep.CreatedAt = parseTimestamp(created)
	rep.UpdatedAt = parseTimestamp(updated)
	return rep, nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, userID int64, month time.Time) (core.MonthlyReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM monthly_reports WHERE user_id = ? AND month = ?`,
		userID, formatDate(core.MonthStart(month)))
	rep, err := scanReport(row)
	if err != nil {
		return core.MonthlyReport{}, notFound(err, "monthly report")
	}
	return rep, nil
}

// UpsertReport writes the report of (user, month) with one conditional
// statement, so concurrent dispatchers cannot create duplicates.
func (r *SQLiteRepository) UpsertReport(ctx context.Context, rep core.MonthlyReport) error {
	summary, err := json.Marshal(rep.Summary)
	if err != nil {
		return fmt.Errorf("encode report summary: %w", err)
	}
	delivered := 0
	if rep.Delivered {
		delivered = 1
	}
	month := formatDate(core.MonthStart(rep.Month))

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO monthly_reports (user_id, month, summary, delivered) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, month) DO UPDATE SET
		   summary = excluded.summary,
		   delivered = excluded.delivered,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		rep.UserID, month, string(summary), delivered)
	if err != nil {
		return fmt.Errorf("upsert monthly report: %w", err)
	}

	slog.InfoContext(ctx, "Monthly report saved",
		"user_id", rep.UserID, "month", month, "delivered", rep.Delivered)
	return nil
}

func (r *SQLiteRepository) LatestReport(ctx context.Context, userID int64) (core.MonthlyReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM monthly_reports WHERE user_id = ?
		 ORDER BY month DESC, created_at DESC LIMIT 1`, userID)
	rep, err := scanReport(row)
	if err != nil {
		return core.MonthlyReport{}, notFound(err, "monthly report")
	}
	return rep, nil
}

func (r *SQLiteRepository) DeleteReport(ctx context.Context, userID int64, month time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM monthly_reports WHERE user_id = ? AND month = ?`,
		userID, formatDate(core.MonthStart(month)))
	if err != nil {
		return fmt.Errorf("delete monthly report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("monthly report: %w", core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Monthly report deleted", "user_id", userID, "month", formatDate(month))
	return nil
}
