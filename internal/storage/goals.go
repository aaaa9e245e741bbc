package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
)

const goalColumns = `id, user_id, name, goal_type, target_cents, target_month, created_at, updated_at`

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var g core.Goal
	var kind, month, created, updated string
	var cents int64
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &kind, &cents, &month, &created, &updated); err != nil {
		return core.Goal{}, err
	}
	m, err := parseDate(month)
	if err != nil {
		return core.Goal{}, err
	}
	g.Type = core.Kind(kind)
	g.Target = core.FromCents(cents)
	g.Month = m
	g.CreatedAt = parseTimestamp(created)
	g.UpdatedAt = parseTimestamp(updated)
	return g, nil
}

// UpsertGoal creates the goal or updates the target of an existing identity.
// created_at is kept on update.
func (r *SQLiteRepository) UpsertGoal(ctx context.Context, g core.Goal) (core.Goal, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("begin goal transaction: %w", err)
	}
	defer tx.Rollback()

	name := strings.TrimSpace(g.Name)
	month := formatDate(core.MonthStart(g.Month))
	cents := core.Cents(g.Target)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO goals (user_id, name, goal_type, target_cents, target_month) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, name, goal_type, target_month) DO NOTHING`,
		g.UserID, name, string(g.Type), cents, month)
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("insert goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("goal rows affected: %w", err)
	}
	created := n > 0

	if !created {
		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET target_cents = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			 WHERE user_id = ? AND name = ? AND goal_type = ? AND target_month = ?`,
			cents, g.UserID, name, string(g.Type), month); err != nil {
			return core.Goal{}, false, fmt.Errorf("update goal target: %w", err)
		}
	}

	stored, err := scanGoal(tx.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE user_id = ? AND name = ? AND goal_type = ? AND target_month = ?`,
		g.UserID, name, string(g.Type), month))
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("reload goal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Goal{}, false, fmt.Errorf("commit goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved",
		"id", stored.ID,
		"user_id", stored.UserID,
		"name", stored.Name,
		"type", stored.Type,
		"target", stored.Target.StringFixed(2),
		"month", month,
		"created", created)
	return stored, created, nil
}

func (r *SQLiteRepository) FindGoals(ctx context.Context, userID int64, month time.Time, kind *core.Kind) ([]core.Goal, error) {
	return findGoals(ctx, r.db, userID, month, kind)
}

func (r *SQLiteRepository) FindGoalsByName(ctx context.Context, userID int64, name string, kind *core.Kind, month *time.Time) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? AND name = ?`
	args := []any{userID, strings.TrimSpace(name)}
	if kind != nil {
		query += ` AND goal_type = ?`
		args = append(args, string(*kind))
	}
	if month != nil {
		query += ` AND target_month = ?`
		args = append(args, formatDate(core.MonthStart(*month)))
	}
	query += ` ORDER BY target_month DESC, created_at DESC, id DESC`
	return queryGoals(ctx, r.db, query, args...)
}

func findGoals(ctx context.Context, q querier, userID int64, month time.Time, kind *core.Kind) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? AND target_month = ?`
	args := []any{userID, formatDate(core.MonthStart(month))}
	if kind != nil {
		query += ` AND goal_type = ? ORDER BY created_at DESC, id DESC`
		args = append(args, string(*kind))
	} else {
		query += ` ORDER BY name, goal_type`
	}
	return queryGoals(ctx, q, query, args...)
}

func queryGoals(ctx context.Context, q querier, query string, args ...any) ([]core.Goal, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

var _ querier = (*sql.Tx)(nil)
