package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gira/internal/models"
)

const issueColumns = `id, issue_title, issue_type, issue_status, parent_project, created_by, state, created_at`

func scanIssue(row *sql.Row) (models.Issue, error) {
	var i models.Issue
	err := row.Scan(&i.ID, &i.Title, &i.Type, &i.Status, &i.ParentProject, &i.CreatedBy, &i.State, &i.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Issue{}, ErrNotFound
	}
	if err != nil {
		return models.Issue{}, fmt.Errorf("scan issue: %w", err)
	}
	return i, nil
}

// InsertIssue persists a new issue under a parent project.
func (q *Queries) InsertIssue(ctx context.Context, title, issueType, status string, parentProject, createdBy int64) (models.Issue, error) {
	if status == "" {
		status = models.DefaultIssueStatus
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO issues(issue_title, issue_type, issue_status, parent_project, created_by) VALUES(?, ?, ?, ?, ?)`,
		title, issueType, status, parentProject, createdBy)
	if err != nil {
		return models.Issue{}, fmt.Errorf("insert issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Issue{}, fmt.Errorf("issue id: %w", err)
	}
	return q.IssueByID(ctx, id)
}

// IssueByID fetches an active issue by id. Ownership is not checked here;
// that is the resolver's job.
func (q *Queries) IssueByID(ctx context.Context, issueID int64) (models.Issue, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ? AND state = 'active'`, issueID)
	return scanIssue(row)
}

// IssuesByProject lists the active issues filed under a project.
func (q *Queries) IssuesByProject(ctx context.Context, projectID int64) ([]models.Issue, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues
        WHERE parent_project = ? AND state = 'active' ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		var i models.Issue
		if err := rows.Scan(&i.ID, &i.Title, &i.Type, &i.Status, &i.ParentProject, &i.CreatedBy, &i.State, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// SetIssueTitle updates an issue's title.
func (q *Queries) SetIssueTitle(ctx context.Context, issueID int64, title string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE issues SET issue_title = ? WHERE id = ?`, title, issueID); err != nil {
		return fmt.Errorf("set issue title: %w", err)
	}
	return nil
}

// SetIssueType updates an issue's type.
func (q *Queries) SetIssueType(ctx context.Context, issueID int64, issueType string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE issues SET issue_type = ? WHERE id = ?`, issueType, issueID); err != nil {
		return fmt.Errorf("set issue type: %w", err)
	}
	return nil
}

// SetIssueStatus updates an issue's workflow status.
func (q *Queries) SetIssueStatus(ctx context.Context, issueID int64, status string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE issues SET issue_status = ? WHERE id = ?`, status, issueID); err != nil {
		return fmt.Errorf("set issue status: %w", err)
	}
	return nil
}

// SetIssueParent repoints an issue at a different parent project. Counter
// adjustments are the coordinator's responsibility.
func (q *Queries) SetIssueParent(ctx context.Context, issueID, projectID int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE issues SET parent_project = ? WHERE id = ?`, projectID, issueID); err != nil {
		return fmt.Errorf("set issue parent: %w", err)
	}
	return nil
}

// MarkIssueDeleted soft-deletes an issue.
func (q *Queries) MarkIssueDeleted(ctx context.Context, issueID int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE issues SET state = 'deleted' WHERE id = ?`, issueID); err != nil {
		return fmt.Errorf("mark issue deleted: %w", err)
	}
	return nil
}
