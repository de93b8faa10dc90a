// Package scope resolves resources within the set a user transitively owns.
// It is the single choke point for authorization: a resource that exists but
// belongs to someone else resolves exactly like one that does not exist, so
// callers can never probe for other users' data.
package scope

import (
	"context"
	"errors"
	"fmt"

	"gira/internal/models"
	"gira/internal/storage/sqlite"
)

// ErrNotFound covers both true absence and out-of-scope resources. The two
// cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found in scope")

// Store is the slice of the entity store the resolver needs. Both
// *sqlite.Store and a transaction-bound *sqlite.Queries satisfy it.
type Store interface {
	ProjectForOwner(ctx context.Context, projectID, ownerID int64) (models.Project, error)
	ProjectByNameForOwner(ctx context.Context, name string, ownerID int64) (models.Project, error)
	IssueByID(ctx context.Context, issueID int64) (models.Issue, error)
}

// Resolver answers "can this user see this resource" questions.
type Resolver struct {
	store Store
}

// New builds a resolver over the given store handle.
func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Project resolves a project iff it is active and owned by ownerID.
func (r *Resolver) Project(ctx context.Context, ownerID, projectID int64) (models.Project, error) {
	p, err := r.store.ProjectForOwner(ctx, projectID, ownerID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("resolve project: %w", err)
	}
	return p, nil
}

// Issue resolves an issue iff it is active and its parent project resolves
// for ownerID. An intact issue row under a deleted or foreign-owned project
// is unreachable; ownership is derived through the parent, never through
// the issue's own created_by field.
func (r *Resolver) Issue(ctx context.Context, ownerID, issueID int64) (models.Issue, error) {
	issue, err := r.store.IssueByID(ctx, issueID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return models.Issue{}, ErrNotFound
	}
	if err != nil {
		return models.Issue{}, fmt.Errorf("resolve issue: %w", err)
	}

	if _, err := r.Project(ctx, ownerID, issue.ParentProject); err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

// ProjectByName resolves a project by name within the owner's namespace.
// Used for per-owner uniqueness checks.
func (r *Resolver) ProjectByName(ctx context.Context, ownerID int64, name string) (models.Project, error) {
	p, err := r.store.ProjectByNameForOwner(ctx, name, ownerID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("resolve project by name: %w", err)
	}
	return p, nil
}
