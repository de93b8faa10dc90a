// Package tracker coordinates project and issue operations, including every
// multi-entity cascade. Each cascade runs inside a single store transaction
// so the denormalized issue counters can never come apart from the issues
// they count.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gira/internal/models"
	"gira/internal/scope"
	"gira/internal/storage/sqlite"
)

var (
	// ErrNotFound covers resources that are absent or out of the caller's scope.
	ErrNotFound = errors.New("not found in scope")
	// ErrProjectExists is returned when the owner already has an active project with the name.
	ErrProjectExists = errors.New("project name already exists")
	// ErrParentNotFound is returned when an issue's parent project does not resolve at creation.
	ErrParentNotFound = errors.New("parent project not found in scope")
	// ErrNewParentNotFound is returned when a reparent target does not resolve.
	ErrNewParentNotFound = errors.New("new parent project not found in scope")
)

// Service exposes the project and issue operations behind the resolver
// choke point. The caller identity is an explicit parameter on every call;
// there is no ambient current user.
type Service struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// New builds the coordinator over an explicit store handle.
func New(store *sqlite.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) resolver() *scope.Resolver {
	return scope.New(s.store)
}

// CreateProject creates a project after checking the per-owner name
// namespace. The same name under a different owner is allowed. Check and
// insert share one transaction so racing creates of the same name cannot
// both pass the check.
func (s *Service) CreateProject(ctx context.Context, ownerID int64, name string) (models.Project, error) {
	var project models.Project
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		res := scope.New(q)
		if _, err := res.ProjectByName(ctx, ownerID, name); err == nil {
			return ErrProjectExists
		} else if !errors.Is(err, scope.ErrNotFound) {
			return err
		}
		var err error
		project, err = q.InsertProject(ctx, name, ownerID)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// ListProjects returns the caller's active projects.
func (s *Service) ListProjects(ctx context.Context, ownerID int64) ([]models.Project, error) {
	return s.store.ProjectsByOwner(ctx, ownerID)
}

// ViewProject resolves a single project in the caller's scope.
func (s *Service) ViewProject(ctx context.Context, ownerID, projectID int64) (models.Project, error) {
	p, err := s.resolver().Project(ctx, ownerID, projectID)
	if errors.Is(err, scope.ErrNotFound) {
		return models.Project{}, ErrNotFound
	}
	return p, err
}

// EditProject renames a project. Any active project of the owner already
// carrying the name conflicts, including the project being renamed. The
// resolve, the name check and the rename share one transaction.
func (s *Service) EditProject(ctx context.Context, ownerID, projectID int64, name string) (models.Project, error) {
	var project models.Project
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		res := scope.New(q)
		p, err := res.Project(ctx, ownerID, projectID)
		if err != nil {
			return err
		}

		if _, err := res.ProjectByName(ctx, ownerID, name); err == nil {
			return ErrProjectExists
		} else if !errors.Is(err, scope.ErrNotFound) {
			return err
		}

		if err := q.RenameProject(ctx, p.ID, name); err != nil {
			return err
		}
		p.ProjectName = name
		project = p
		return nil
	})
	if errors.Is(err, scope.ErrNotFound) {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// DeleteProject soft-deletes a project and cascades to its active issues.
// The counter converges to zero through one decrement per deleted issue,
// not by being set directly.
func (s *Service) DeleteProject(ctx context.Context, ownerID, projectID int64) error {
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		res := scope.New(q)
		p, err := res.Project(ctx, ownerID, projectID)
		if err != nil {
			return err
		}

		if err := q.MarkProjectDeleted(ctx, p.ID); err != nil {
			return err
		}

		issues, err := q.IssuesByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			if err := q.MarkIssueDeleted(ctx, issue.ID); err != nil {
				return err
			}
			if err := q.DecrementIssueCount(ctx, p.ID); err != nil {
				return err
			}
		}

		s.logger.Info("project deleted",
			slog.Int64("project", p.ID),
			slog.Int64("owner", ownerID),
			slog.Int("cascaded_issues", len(issues)))
		return nil
	})
	if errors.Is(err, scope.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateIssue files a new issue under a project in the caller's scope and
// bumps the project's counter, atomically.
func (s *Service) CreateIssue(ctx context.Context, caller models.User, title, issueType string, parentProject int64) (models.Issue, error) {
	var issue models.Issue
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		res := scope.New(q)
		parent, err := res.Project(ctx, caller.ID, parentProject)
		if errors.Is(err, scope.ErrNotFound) {
			return ErrParentNotFound
		}
		if err != nil {
			return err
		}

		issue, err = q.InsertIssue(ctx, title, issueType, models.DefaultIssueStatus, parent.ID, caller.ID)
		if err != nil {
			return err
		}
		return q.IncrementIssueCount(ctx, parent.ID)
	})
	if err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

// ViewIssue resolves an issue in the caller's scope. An issue under a
// deleted or foreign-owned project is reported exactly like a missing one.
func (s *Service) ViewIssue(ctx context.Context, ownerID, issueID int64) (models.Issue, error) {
	issue, err := s.resolver().Issue(ctx, ownerID, issueID)
	if errors.Is(err, scope.ErrNotFound) {
		return models.Issue{}, ErrNotFound
	}
	return issue, err
}

// DeleteIssue soft-deletes an issue and decrements its parent's counter,
// atomically.
func (s *Service) DeleteIssue(ctx context.Context, ownerID, issueID int64) error {
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		res := scope.New(q)
		issue, err := res.Issue(ctx, ownerID, issueID)
		if err != nil {
			return err
		}
		if err := q.MarkIssueDeleted(ctx, issue.ID); err != nil {
			return err
		}
		return q.DecrementIssueCount(ctx, issue.ParentProject)
	})
	if errors.Is(err, scope.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// IssueUpdate lists the optional fields an editIssue call may change.
// Empty strings and a nil Parent mean "not supplied".
type IssueUpdate struct {
	Title  string
	Type   string
	Status string
	Parent *int64
}

// EditIssue applies the supplied fields in fixed order: title, type,
// status, parent. The scalar fields persist immediately as they are
// applied; the reparent step runs last inside one transaction and, when the
// new parent does not resolve, fails without undoing the earlier fields.
// That partial-apply ordering is preserved observable behavior.
func (s *Service) EditIssue(ctx context.Context, ownerID, issueID int64, update IssueUpdate) (models.Issue, string, error) {
	issue, err := s.resolver().Issue(ctx, ownerID, issueID)
	if errors.Is(err, scope.ErrNotFound) {
		return models.Issue{}, "", ErrNotFound
	}
	if err != nil {
		return models.Issue{}, "", err
	}

	var changed []string

	if update.Title != "" {
		if err := s.store.SetIssueTitle(ctx, issue.ID, update.Title); err != nil {
			return issue, "", err
		}
		issue.Title = update.Title
		changed = append(changed, "title")
	}

	if update.Type != "" {
		if err := s.store.SetIssueType(ctx, issue.ID, update.Type); err != nil {
			return issue, "", err
		}
		issue.Type = update.Type
		changed = append(changed, "type")
	}

	if update.Status != "" {
		if err := s.store.SetIssueStatus(ctx, issue.ID, update.Status); err != nil {
			return issue, "", err
		}
		issue.Status = update.Status
		changed = append(changed, "status")
	}

	if update.Parent != nil {
		newParent := *update.Parent
		err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
			res := scope.New(q)
			// Re-resolve inside the transaction: the issue may have been
			// deleted or moved since the resolve above, and the decrement
			// must hit the parent the issue has now, not a stale snapshot.
			current, err := res.Issue(ctx, ownerID, issue.ID)
			if errors.Is(err, scope.ErrNotFound) {
				return ErrNotFound
			} else if err != nil {
				return err
			}
			if _, err := res.Project(ctx, ownerID, newParent); errors.Is(err, scope.ErrNotFound) {
				return ErrNewParentNotFound
			} else if err != nil {
				return err
			}
			if err := q.DecrementIssueCount(ctx, current.ParentProject); err != nil {
				return err
			}
			if err := q.IncrementIssueCount(ctx, newParent); err != nil {
				return err
			}
			return q.SetIssueParent(ctx, issue.ID, newParent)
		})
		if err != nil {
			return issue, "", err
		}
		issue.ParentProject = newParent
		changed = append(changed, "parent")
	}

	if len(changed) == 0 {
		return issue, "Nothing to update", nil
	}
	return issue, "Successfully updated " + strings.Join(changed, " ") + " ", nil
}
