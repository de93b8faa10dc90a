package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gira/internal/models"
)

const userColumns = `id, username, email, password, session_active, state, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.SessionActive, &u.State, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// InsertUser persists a new user with the session flag unset.
func (q *Queries) InsertUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO users(username, email, password) VALUES(?, ?, ?)`,
		username, email, passwordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return q.UserByID(ctx, id)
}

// UserByID fetches an active user by id.
func (q *Queries) UserByID(ctx context.Context, id int64) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? AND state = 'active'`, id)
	return scanUser(row)
}

// UserByEmail fetches an active user by exact email match.
func (q *Queries) UserByEmail(ctx context.Context, email string) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? AND state = 'active'`, email)
	return scanUser(row)
}

// UserByUsername fetches an active user by exact username match.
func (q *Queries) UserByUsername(ctx context.Context, username string) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? AND state = 'active'`, username)
	return scanUser(row)
}

// SetSessionActive flips the single-slot session flag for a user.
func (q *Queries) SetSessionActive(ctx context.Context, userID int64, active bool) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE users SET session_active = ? WHERE id = ?`, active, userID); err != nil {
		return fmt.Errorf("set session flag: %w", err)
	}
	return nil
}

// UpdateUsername changes a user's username.
func (q *Queries) UpdateUsername(ctx context.Context, userID int64, username string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, userID); err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

// UpdateEmail changes a user's email.
func (q *Queries) UpdateEmail(ctx context.Context, userID int64, email string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE users SET email = ? WHERE id = ?`, email, userID); err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	return nil
}

// UpdatePassword replaces a user's stored password hash.
func (q *Queries) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, passwordHash, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// MarkUserDeleted soft-deletes a user. No route exposes this, but the store
// supports the full lifecycle.
func (q *Queries) MarkUserDeleted(ctx context.Context, userID int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE users SET state = 'deleted' WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("mark user deleted: %w", err)
	}
	return nil
}

// InsertRevokedToken adds a token to the permanent blocklist. Inserting the
// same token twice is a no-op.
func (q *Queries) InsertRevokedToken(ctx context.Context, token string) error {
	if _, err := q.db.ExecContext(ctx, `INSERT OR IGNORE INTO revoked_tokens(token) VALUES(?)`, token); err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}
	return nil
}

// TokenRevoked reports whether the exact token string has been blocklisted.
func (q *Queries) TokenRevoked(ctx context.Context, token string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM revoked_tokens WHERE token = ?`, token).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
