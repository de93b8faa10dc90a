package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups when no active row matches. Callers
// must not be able to tell a missing row from a soft-deleted one.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query code runs
// on the pool and inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries exposes the single-entity persistence primitives. Cross-entity
// invariants are not enforced here; coordinators compose these calls inside
// WithTx.
type Queries struct {
	db DBTX
}

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	*Queries
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{Queries: &Queries{db: conn}, db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn against a transaction-bound set of queries. Every cascade
// that touches more than one entity goes through here so a crash cannot
// leave a project counter inconsistent with its issues.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            email TEXT NOT NULL,
            password TEXT NOT NULL,
            session_active INTEGER NOT NULL DEFAULT 0,
            state TEXT NOT NULL DEFAULT 'active' CHECK(state IN ('active','deleted')),
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS revoked_tokens (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            token TEXT NOT NULL UNIQUE,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_name TEXT NOT NULL,
            number_of_issues INTEGER NOT NULL DEFAULT 0,
            created_by INTEGER NOT NULL,
            state TEXT NOT NULL DEFAULT 'active' CHECK(state IN ('active','deleted')),
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(created_by) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS issues (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            issue_title TEXT NOT NULL,
            issue_type TEXT NOT NULL,
            issue_status TEXT NOT NULL DEFAULT 'To Do',
            parent_project INTEGER NOT NULL,
            created_by INTEGER NOT NULL,
            state TEXT NOT NULL DEFAULT 'active' CHECK(state IN ('active','deleted')),
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(parent_project) REFERENCES projects(id),
            FOREIGN KEY(created_by) REFERENCES users(id)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active ON users(email) WHERE state = 'active';`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active ON users(username) WHERE state = 'active';`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_name_active ON projects(created_by, project_name) WHERE state = 'active';`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(created_by, state);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_parent ON issues(parent_project, state);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
