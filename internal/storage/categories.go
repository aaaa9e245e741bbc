package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

const categoryColumns = `id, user_id, kind, name, description, created_at`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var kind, created string
	if err := row.Scan(&c.ID, &c.UserID, &kind, &c.Name, &c.Description, &created); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.Kind(kind)
	c.CreatedAt = parseTimestamp(created)
	return c, nil
}

// EnsureCategory inserts the category unless (user, kind, name) already
// exists. An existing category keeps its description.
func (r *SQLiteRepository) EnsureCategory(ctx context.Context, c core.Category) (core.Category, bool, error) {
	name := strings.TrimSpace(c.Name)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, kind, name, description) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, kind, name) DO NOTHING`,
		c.UserID, string(c.Kind), name, c.Description)
	if err != nil {
		return core.Category{}, false, fmt.Errorf("insert category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Category{}, false, fmt.Errorf("category rows affected: %w", err)
	}

	stored, err := r.GetCategoryByName(ctx, c.UserID, c.Kind, name)
	if err != nil {
		return core.Category{}, false, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Category created",
			"id", stored.ID, "user_id", stored.UserID, "kind", stored.Kind, "name", stored.Name)
	}
	return stored, n > 0, nil
}

func (r *SQLiteRepository) GetCategoryByName(ctx context.Context, userID int64, kind core.Kind, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND kind = ? AND name = ?`,
		userID, string(kind), strings.TrimSpace(name))
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound(err, fmt.Sprintf("%s category %q", kind, name))
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND kind = ? ORDER BY name`,
		userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context, userID int64, kind core.Kind) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ? AND kind = ?`, userID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}
