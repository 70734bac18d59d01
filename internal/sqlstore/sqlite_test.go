package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"taskassign/taskboard/internal/auth"
	"taskassign/taskboard/internal/migrations"
	"taskassign/taskboard/internal/sqlstore"
	"taskassign/taskboard/internal/tasks"
)

func openMigrated(t *testing.T) *sqlstore.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "store.db")})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(db.SQL(), db.Dialect())
	if err != nil {
		t.Fatalf("migrations.New() error: %v", err)
	}
	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("Up() error: %v", err)
	}
	return db
}

func TestSQLiteUserStore(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)
	users, _ := sqlstore.NewUserStore(db)

	alice, err := users.Create(ctx, auth.User{Username: "alice", PasswordHash: "h1", Role: auth.RoleWorker})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if alice.ID == 0 {
		t.Fatalf("expected generated id")
	}
	if _, err := users.Create(ctx, auth.User{Username: "alice", PasswordHash: "h2", Role: auth.RoleWorker}); !errors.Is(err, auth.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	got, err := users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if got.ID != alice.ID || got.PasswordHash != "h1" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if _, err := users.GetByUsername(ctx, "Alice"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected case-sensitive lookup, got %v", err)
	}
}

func TestSQLiteTaskRepository(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)
	users, _ := sqlstore.NewUserStore(db)
	repo, _ := sqlstore.NewTaskRepository(db)

	bob, _ := users.Create(ctx, auth.User{Username: "bob", PasswordHash: "h", Role: auth.RoleWorker})
	amy, _ := users.Create(ctx, auth.User{Username: "amy", PasswordHash: "h", Role: auth.RoleWorker})
	if _, err := users.Create(ctx, auth.User{Username: "root", PasswordHash: "h", Role: auth.RoleAdmin}); err != nil {
		t.Fatalf("Create(admin) error: %v", err)
	}

	workers, err := repo.ListWorkers(ctx)
	if err != nil {
		t.Fatalf("ListWorkers() error: %v", err)
	}
	if len(workers) != 2 || workers[0].Username != "amy" || workers[1].Username != "bob" {
		t.Fatalf("expected workers ordered by username, got %+v", workers)
	}

	deadline, _ := tasks.ParseDate("2024-12-31")
	t1, err := repo.Create(ctx, tasks.NewTask{Title: "Fix bug", Description: "crash", Deadline: deadline, AssignedTo: bob.ID})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := repo.Create(ctx, tasks.NewTask{Title: "Docs", Deadline: deadline, AssignedTo: amy.ID}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := repo.Create(ctx, tasks.NewTask{Title: "Ghost", Deadline: deadline, AssignedTo: 999}); err != nil {
		t.Fatalf("expected dangling assignee to be accepted, got %v", err)
	}

	all, _ := repo.ListAll(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}
	mine, _ := repo.ListByAssignee(ctx, bob.ID)
	if len(mine) != 1 || mine[0].ID != t1.ID || mine[0].Status != tasks.StatusPending {
		t.Fatalf("unexpected bob tasks: %+v", mine)
	}
	if mine[0].Deadline.String() != "2024-12-31" {
		t.Fatalf("expected deadline to round trip, got %q", mine[0].Deadline.String())
	}

	if n, _ := repo.MarkCompleted(ctx, t1.ID, amy.ID); n != 0 {
		t.Fatalf("expected other worker to match nothing, got %d", n)
	}
	for i := 0; i < 2; i++ {
		n, err := repo.MarkCompleted(ctx, t1.ID, bob.ID)
		if err != nil || n != 1 {
			t.Fatalf("MarkCompleted() call %d = %d, %v", i+1, n, err)
		}
	}

	if _, err := repo.SetFeedback(ctx, t1.ID, "Good work"); err != nil {
		t.Fatalf("SetFeedback() error: %v", err)
	}
	if _, err := repo.SetFeedback(ctx, t1.ID, "Great work"); err != nil {
		t.Fatalf("SetFeedback() error: %v", err)
	}
	got, err := repo.Get(ctx, t1.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != tasks.StatusCompleted || got.FeedbackText() != "Great work" {
		t.Fatalf("unexpected task after updates: %+v", got)
	}
}

func TestSQLiteSessionStore(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)
	store, _ := sqlstore.NewSessionStore(db)
	now := time.Now().UTC().Truncate(time.Second)

	live := auth.Session{ID: "s1", Token: "live", UserID: 1, Username: "root", Role: auth.RoleAdmin, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := auth.Session{ID: "s2", Token: "stale", UserID: 2, Username: "bob", Role: auth.RoleWorker, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []auth.Session{live, stale} {
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("Put(%s) error: %v", s.Token, err)
		}
	}

	got, err := store.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Username != "root" || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("unexpected session: %+v", got)
	}

	n, err := store.DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired() = %d, %v", n, err)
	}
	if _, err := store.Get(ctx, "stale"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected stale session removed, got %v", err)
	}

	if err := store.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, "live"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}
