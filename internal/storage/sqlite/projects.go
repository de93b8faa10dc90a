package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gira/internal/models"
)

const projectColumns = `id, project_name, number_of_issues, created_by, state, created_at`

func scanProject(row *sql.Row) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.ProjectName, &p.NumberOfIssues, &p.CreatedBy, &p.State, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("scan project: %w", err)
	}
	return p, nil
}

// InsertProject persists a new project owned by ownerID.
func (q *Queries) InsertProject(ctx context.Context, name string, ownerID int64) (models.Project, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO projects(project_name, created_by) VALUES(?, ?)`, name, ownerID)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ProjectForOwner fetches an active project only when ownerID created it.
func (q *Queries) ProjectForOwner(ctx context.Context, projectID, ownerID int64) (models.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects
        WHERE id = ? AND created_by = ? AND state = 'active'`, projectID, ownerID)
	return scanProject(row)
}

// ProjectByNameForOwner fetches an active project by name within a single
// owner's namespace. Name uniqueness is per owner, not global.
func (q *Queries) ProjectByNameForOwner(ctx context.Context, name string, ownerID int64) (models.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects
        WHERE project_name = ? AND created_by = ? AND state = 'active'`, name, ownerID)
	return scanProject(row)
}

// ProjectsByOwner lists the active projects a user created, oldest first.
func (q *Queries) ProjectsByOwner(ctx context.Context, ownerID int64) ([]models.Project, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects
        WHERE created_by = ? AND state = 'active' ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ProjectName, &p.NumberOfIssues, &p.CreatedBy, &p.State, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// RenameProject changes a project's name.
func (q *Queries) RenameProject(ctx context.Context, projectID int64, name string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE projects SET project_name = ? WHERE id = ?`, name, projectID); err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	return nil
}

// MarkProjectDeleted soft-deletes a project.
func (q *Queries) MarkProjectDeleted(ctx context.Context, projectID int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE projects SET state = 'deleted' WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("mark project deleted: %w", err)
	}
	return nil
}

// IncrementIssueCount bumps the denormalized issue counter by one.
func (q *Queries) IncrementIssueCount(ctx context.Context, projectID int64) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE projects SET number_of_issues = number_of_issues + 1 WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("increment issue count: %w", err)
	}
	return nil
}

// DecrementIssueCount lowers the counter by one, saturating at zero.
// Decrementing a zero counter is a no-op, never a negative value.
func (q *Queries) DecrementIssueCount(ctx context.Context, projectID int64) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE projects SET number_of_issues = number_of_issues - 1 WHERE id = ? AND number_of_issues > 0`, projectID); err != nil {
		return fmt.Errorf("decrement issue count: %w", err)
	}
	return nil
}
