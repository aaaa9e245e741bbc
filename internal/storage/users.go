package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, &core.ValidationError{Field: "username", Reason: "is required"}
	}

	var u core.User
	var created string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email) VALUES (?, ?)
		 RETURNING id, username, email, created_at`,
		username, strings.TrimSpace(email),
	).Scan(&u.ID, &u.Username, &u.Email, &created)
	if isUniqueViolation(err) {
		return core.User{}, &core.ValidationError{Field: "username", Reason: "already exists"}
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt = parseTimestamp(created)

	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	var created string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &created)
	if err != nil {
		return core.User{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

// ListUsers pages users by id so the batch never holds the whole table.
func (r *SQLiteRepository) ListUsers(ctx context.Context, afterID int64, limit int) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users
		 WHERE id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		var created string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = parseTimestamp(created)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
