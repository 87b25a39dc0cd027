package storage

import (
	"context"
	"fmt"
	"strings"

	"rentdesk/internal/core"
)

const userColumns = `id, name, email, phone, role, password_hash, created_at, updated_at`

func scanUser(s scanner) (core.User, error) {
	var u core.User
	var created, updated string
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.PasswordHash, &created, &updated)
	u.CreatedAt, u.UpdatedAt = parseTime(created), parseTime(updated)
	return u, err
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.Role, u.PasswordHash,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return queryOne(ctx, r.db, "get user", scanUser,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail looks a user up case-insensitively.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return queryOne(ctx, r.db, "get user by email", scanUser,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	return queryAll(ctx, r.db, "list users", scanUser,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
}

// UpdateUser replaces every column. Callers keep PasswordHash when the
// password is unchanged.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	return r.exec(ctx, "update user",
		`UPDATE users SET name = ?, email = ?, phone = ?, role = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		u.Name, strings.ToLower(u.Email), u.Phone, u.Role, u.PasswordHash, formatTime(u.UpdatedAt), u.ID)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	return r.exec(ctx, "delete user", `DELETE FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
