package models

import "time"

// Lifecycle is the soft-delete state of an entity. Rows are never removed
// from storage; they transition from Active to Deleted exactly once.
type Lifecycle string

const (
	Active  Lifecycle = "active"
	Deleted Lifecycle = "deleted"
)

// User is an account that owns projects and, through them, issues.
type User struct {
	ID            int64     `json:"_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Password      string    `json:"-"`
	SessionActive bool      `json:"-"`
	State         Lifecycle `json:"-"`
	CreatedAt     time.Time `json:"-"`
}

// RevokedToken is a blocklisted bearer token. Entries are insert-only:
// once a token lands here it stays revoked for good.
type RevokedToken struct {
	ID        int64
	Token     string
	CreatedAt time.Time
}

// Project groups issues under a single owning user. NumberOfIssues is a
// denormalized count of the project's non-deleted issues, maintained by
// explicit increment/decrement calls rather than recomputation.
type Project struct {
	ID             int64     `json:"_id"`
	ProjectName    string    `json:"project_name"`
	NumberOfIssues int64     `json:"number_of_issues"`
	CreatedBy      int64     `json:"-"`
	State          Lifecycle `json:"-"`
	CreatedAt      time.Time `json:"-"`
}

// Issue is a single tracked item. Authorization is derived through the
// parent project's owner; CreatedBy is recorded and echoed on the wire but
// never consulted for access decisions.
type Issue struct {
	ID            int64     `json:"_id"`
	Title         string    `json:"issue_title"`
	Type          string    `json:"issue_type"`
	Status        string    `json:"issue_status"`
	ParentProject int64     `json:"parent_project"`
	CreatedBy     int64     `json:"created_by"`
	State         Lifecycle `json:"-"`
	CreatedAt     time.Time `json:"-"`
}

// DefaultIssueStatus is assigned to issues created without a status.
const DefaultIssueStatus = "To Do"

// ValidIssueTypes enumerates the accepted issue types.
var ValidIssueTypes = map[string]struct{}{
	"Bug":         {},
	"Improvement": {},
	"Feature":     {},
}

// ValidIssueStatuses enumerates the accepted workflow statuses.
var ValidIssueStatuses = map[string]struct{}{
	"To Do":       {},
	"In Progress": {},
	"Done":        {},
}
