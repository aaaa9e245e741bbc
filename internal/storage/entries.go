package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const entrySelect = `SELECT e.id, e.user_id, e.kind, e.category_id, c.name, e.amount_cents,
	e.entry_date, e.note, e.created_at, e.updated_at
	FROM entries e JOIN categories c ON c.id = e.category_id`

func scanEntry(row interface{ Scan(...any) error }) (core.Entry, error) {
	var e core.Entry
	var kind, day, created, updated string
	var cents int64
	if err := row.Scan(&e.ID, &e.UserID, &kind, &e.CategoryID, &e.Category, &cents,
		&day, &e.Note, &created, &updated); err != nil {
		return core.Entry{}, err
	}
	d, err := parseDate(day)
	if err != nil {
		return core.Entry{}, err
	}
	e.Kind = core.Kind(kind)
	e.Amount = core.FromCents(cents)
	e.EntryDate = d
	e.CreatedAt = parseTimestamp(created)
	e.UpdatedAt = parseTimestamp(updated)
	return e, nil
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO entries (user_id, kind, category_id, amount_cents, entry_date, note)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		e.UserID, string(e.Kind), e.CategoryID, core.Cents(e.Amount), formatDate(e.EntryDate), e.Note,
	).Scan(&id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"user_id", e.UserID,
		"kind", e.Kind,
		"category", e.Category,
		"amount", e.Amount.StringFixed(2),
		"entry_date", formatDate(e.EntryDate))

	return r.GetEntry(ctx, e.UserID, e.Kind, id)
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		entrySelect+` WHERE e.id = ? AND e.user_id = ? AND e.kind = ?`, id, userID, string(kind))
	e, err := scanEntry(row)
	if err != nil {
		return core.Entry{}, notFound(err, fmt.Sprintf("%s entry %d", kind, id))
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET category_id = ?, amount_cents = ?, entry_date = ?, note = ?,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE id = ? AND user_id = ? AND kind = ?`,
		e.CategoryID, core.Cents(e.Amount), formatDate(e.EntryDate), e.Note, e.ID, e.UserID, string(e.Kind))
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Entry{}, fmt.Errorf("%s entry %d: %w", e.Kind, e.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Entry updated", "id", e.ID, "user_id", e.UserID, "kind", e.Kind)
	return r.GetEntry(ctx, e.UserID, e.Kind, e.ID)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND user_id = ? AND kind = ?`, id, userID, string(kind))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s entry %d: %w", kind, id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Entry deleted", "id", id, "user_id", userID, "kind", kind)
	return nil
}

func (r *SQLiteRepository) CountEntries(ctx context.Context, userID int64, kind core.Kind) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE user_id = ? AND kind = ?`, userID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// ListEntries returns one page of entries ordered by date then creation,
// newest first, together with the number of matching rows.
func (r *SQLiteRepository) ListEntries(ctx context.Context, userID int64, f core.EntryFilter) ([]core.Entry, int, error) {
	where := []string{"e.user_id = ?"}
	args := []any{userID}
	if f.Kind != nil {
		where = append(where, "e.kind = ?")
		args = append(args, string(*f.Kind))
	}
	if name := strings.TrimSpace(f.Category); name != "" {
		where = append(where, "c.name = ?")
		args = append(args, name)
	}
	if f.Range != nil {
		where = append(where, "e.entry_date BETWEEN ? AND ?")
		args = append(args, formatDate(f.Range.From), formatDate(f.Range.To))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries e JOIN categories c ON c.id = e.category_id`+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		entrySelect+cond+` ORDER BY e.entry_date DESC, e.created_at DESC, e.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entries: %w", err)
	}
	return out, total, nil
}

func (r *SQLiteRepository) DeleteEntriesInRange(ctx context.Context, userID int64, kind core.Kind, rng core.DateRange) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = ? AND kind = ? AND entry_date BETWEEN ? AND ?`,
		userID, string(kind), formatDate(rng.From), formatDate(rng.To))
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleted entries count: %w", err)
	}

	slog.InfoContext(ctx, "Entries deleted",
		"user_id", userID, "kind", kind, "from", formatDate(rng.From), "to", formatDate(rng.To), "count", n)
	return n, nil
}

func (r *SQLiteRepository) SumAmountsByCategory(ctx context.Context, userID int64, kind core.Kind, rng *core.DateRange) ([]core.CategoryAmount, error) {
	return sumAmountsByCategory(ctx, r.db, userID, kind, rng)
}

func (r *SQLiteRepository) SumEntries(ctx context.Context, userID int64, kind core.Kind, rng core.DateRange, excludeID int64) (decimal.Decimal, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM entries
		 WHERE user_id = ? AND kind = ? AND entry_date BETWEEN ? AND ? AND id != ?`,
		userID, string(kind), formatDate(rng.From), formatDate(rng.To), excludeID).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum %s entries: %w", kind, err)
	}
	return core.FromCents(cents), nil
}

func sumAmountsByCategory(ctx context.Context, q querier, userID int64, kind core.Kind, rng *core.DateRange) ([]core.CategoryAmount, error) {
	query := `SELECT c.name, SUM(e.amount_cents) FROM entries e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND e.kind = ?`
	args := []any{userID, string(kind)}
	if rng != nil {
		query += ` AND e.entry_date BETWEEN ? AND ?`
		args = append(args, formatDate(rng.From), formatDate(rng.To))
	}
	query += ` GROUP BY c.name ORDER BY c.name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum %s by category: %w", kind, err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var name string
		var cents int64
		if err := rows.Scan(&name, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, core.CategoryAmount{Name: name, Amount: core.FromCents(cents)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sums: %w", err)
	}
	return out, nil
}
