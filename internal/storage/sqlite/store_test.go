package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"gira/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(t.TempDir(), "gira.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, username, email string) models.User {
	t.Helper()
	user, err := store.InsertUser(context.Background(), username, email, "hash")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return user
}

func seedProject(t *testing.T, store *Store, name string, ownerID int64) models.Project {
	t.Helper()
	project, err := store.InsertProject(context.Background(), name, ownerID)
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}
	return project
}

func TestCounterSaturatesAtZero(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "apple", "apple@apple.com")
	project := seedProject(t, store, "p1", user.ID)

	if err := store.DecrementIssueCount(ctx, project.ID); err != nil {
		t.Fatalf("decrement at zero: %v", err)
	}
	got, err := store.ProjectForOwner(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("fetch project: %v", err)
	}
	if got.NumberOfIssues != 0 {
		t.Fatalf("counter after decrement at zero: got %d, want 0", got.NumberOfIssues)
	}

	for i := 0; i < 2; i++ {
		if err := store.IncrementIssueCount(ctx, project.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := store.DecrementIssueCount(ctx, project.ID); err != nil {
			t.Fatalf("decrement: %v", err)
		}
	}
	got, err = store.ProjectForOwner(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("fetch project: %v", err)
	}
	if got.NumberOfIssues != 0 {
		t.Fatalf("counter after over-decrement: got %d, want 0", got.NumberOfIssues)
	}
}

func TestConcurrentCounterUpdates(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "apple", "apple@apple.com")
	project := seedProject(t, store, "p1", user.ID)

	const workers = 5
	const perWorker = 10

	var wg sync.WaitGroup
	errCh := make(chan error, workers*2)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := store.IncrementIssueCount(ctx, project.ID); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker/2; i++ {
				if err := store.DecrementIssueCount(ctx, project.ID); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent counter update: %v", err)
	}

	got, err := store.ProjectForOwner(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("fetch project: %v", err)
	}
	want := int64(workers*perWorker - workers*perWorker/2)
	if got.NumberOfIssues != want {
		t.Fatalf("counter after concurrent updates: got %d, want %d", got.NumberOfIssues, want)
	}
}

func TestSoftDeletedRowsInvisible(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := seedUser(t, store, "apple", "apple@apple.com")
	project := seedProject(t, store, "p1", user.ID)
	issue, err := store.InsertIssue(ctx, "broken build", "Bug", "", project.ID, user.ID)
	if err != nil {
		t.Fatalf("insert issue: %v", err)
	}
	if issue.Status != models.DefaultIssueStatus {
		t.Fatalf("default status: got %q, want %q", issue.Status, models.DefaultIssueStatus)
	}

	if err := store.MarkIssueDeleted(ctx, issue.ID); err != nil {
		t.Fatalf("mark issue deleted: %v", err)
	}
	if _, err := store.IssueByID(ctx, issue.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted issue lookup: got %v, want ErrNotFound", err)
	}
	issues, err := store.IssuesByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("list issues: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("deleted issue listed: got %d issues, want 0", len(issues))
	}

	if err := store.MarkProjectDeleted(ctx, project.ID); err != nil {
		t.Fatalf("mark project deleted: %v", err)
	}
	if _, err := store.ProjectForOwner(ctx, project.ID, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted project lookup: got %v, want ErrNotFound", err)
	}
	projects, err := store.ProjectsByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("deleted project listed: got %d projects, want 0", len(projects))
	}

	if err := store.MarkUserDeleted(ctx, user.ID); err != nil {
		t.Fatalf("mark user deleted: %v", err)
	}
	if _, err := store.UserByEmail(ctx, user.Email); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted user by email: got %v, want ErrNotFound", err)
	}
	if _, err := store.UserByUsername(ctx, user.Username); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted user by username: got %v, want ErrNotFound", err)
	}
}

func TestUniquenessScopedToActiveUsers(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := seedUser(t, store, "apple", "apple@apple.com")
	if err := store.MarkUserDeleted(ctx, user.ID); err != nil {
		t.Fatalf("mark user deleted: %v", err)
	}

	// The namespace of a soft-deleted user is free for reuse.
	again := seedUser(t, store, "apple", "apple@apple.com")
	got, err := store.UserByEmail(ctx, "apple@apple.com")
	if err != nil {
		t.Fatalf("lookup reused email: %v", err)
	}
	if got.ID != again.ID {
		t.Fatalf("reused email resolves to user %d, want %d", got.ID, again.ID)
	}
}

func TestActiveDuplicateUserInsertRejected(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := seedUser(t, store, "apple", "apple@apple.com")

	// The partial unique indexes are the last line of defense under the
	// coordinator transactions: a second active row with the same email or
	// username must not be insertable at all.
	if _, err := store.InsertUser(ctx, "pear", "apple@apple.com", "hash"); err == nil {
		t.Fatal("duplicate active email inserted")
	}
	if _, err := store.InsertUser(ctx, "apple", "pear@pear.com", "hash"); err == nil {
		t.Fatal("duplicate active username inserted")
	}

	got, err := store.UserByEmail(ctx, "apple@apple.com")
	if err != nil {
		t.Fatalf("lookup after rejected inserts: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("email resolves to user %d, want %d", got.ID, first.ID)
	}
}

func TestActiveDuplicateProjectInsertRejected(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := seedUser(t, store, "apple", "apple@apple.com")
	other := seedUser(t, store, "pear", "pear@pear.com")
	project := seedProject(t, store, "p1", user.ID)

	if _, err := store.InsertProject(ctx, "p1", user.ID); err == nil {
		t.Fatal("duplicate active project name inserted for the same owner")
	}

	// The name namespace is per owner.
	if _, err := store.InsertProject(ctx, "p1", other.ID); err != nil {
		t.Fatalf("same name under another owner: %v", err)
	}

	// A soft-deleted project frees its name.
	if err := store.MarkProjectDeleted(ctx, project.ID); err != nil {
		t.Fatalf("mark project deleted: %v", err)
	}
	if _, err := store.InsertProject(ctx, "p1", user.ID); err != nil {
		t.Fatalf("reuse name of deleted project: %v", err)
	}
}

func TestRevokedTokenInsertIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	const token = "some.jwt.token"
	for i := 0; i < 2; i++ {
		if err := store.InsertRevokedToken(ctx, token); err != nil {
			t.Fatalf("insert revoked token (attempt %d): %v", i+1, err)
		}
	}

	revoked, err := store.TokenRevoked(ctx, token)
	if err != nil {
		t.Fatalf("check revoked: %v", err)
	}
	if !revoked {
		t.Fatal("token not revoked after double insert")
	}

	revoked, err = store.TokenRevoked(ctx, "other.token")
	if err != nil {
		t.Fatalf("check unrevoked: %v", err)
	}
	if revoked {
		t.Fatal("unrelated token reported revoked")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "apple", "apple@apple.com")
	project := seedProject(t, store, "p1", user.ID)

	failure := fmt.Errorf("boom")
	err := store.WithTx(ctx, func(q *Queries) error {
		if err := q.IncrementIssueCount(ctx, project.ID); err != nil {
			return err
		}
		if err := q.MarkProjectDeleted(ctx, project.ID); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("WithTx error: got %v, want %v", err, failure)
	}

	got, err := store.ProjectForOwner(ctx, project.ID, user.ID)
	if err != nil {
		t.Fatalf("project should still be active after rollback: %v", err)
	}
	if got.NumberOfIssues != 0 {
		t.Fatalf("counter after rollback: got %d, want 0", got.NumberOfIssues)
	}
}
