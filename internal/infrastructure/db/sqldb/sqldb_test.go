package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

// openTestDB returns a migrated SQLite database in a temp dir.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "issues.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *DB, email string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u, err := NewUserRepository(db).Create(context.Background(), &domain.User{
		Name: "Test", Email: email, PasswordHash: "hash", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"postgres": Postgres, " MySQL ": MySQL, "sqlite": SQLite} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDialect("mongo"); err == nil {
		t.Errorf("expected error for non-SQL driver")
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE issues SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`

	pg := &DB{dialect: Postgres}
	if got, want := pg.rebind(q), `UPDATE issues SET title = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`; got != want {
		t.Errorf("postgres rebind:\n got %s\nwant %s", got, want)
	}
	my := &DB{dialect: MySQL}
	if got := my.rebind(q); got != q {
		t.Errorf("mysql must keep ? placeholders, got %s", got)
	}
}

func TestMigrations_UpDown(t *testing.T) {
	db := openTestDB(t)

	v, dirty, err := Version(context.Background(), db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("expected clean version 2, got %d dirty=%v", v, dirty)
	}

	// Running up again is a no-op.
	if err := MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}

	if err := MigrateDown(context.Background(), db, 1); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if v, _, _ := Version(context.Background(), db); v != 1 {
		t.Fatalf("expected version 1 after one step down, got %d", v)
	}
	if _, err := db.SQL().Exec(`SELECT id FROM issues`); err == nil {
		t.Fatalf("issues table should be gone after rolling back")
	}
}

func TestMigrations_UseTheirOwnConnection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "issues.db")

	db, err := Open(ctx, SQLite, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := MigrateUp(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if stats := db.SQL().Stats(); stats.InUse != 0 {
		t.Fatalf("migrations left %d pool connections in use", stats.InUse)
	}
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("shared pool unusable after migrating: %v", err)
	}

	// Closing the shared pool must not affect migration commands.
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	v, _, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("version after closing the pool: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := createUser(t, db, "alice@example.com")
	if created.ID == 0 {
		t.Fatalf("expected generated id")
	}

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != created.ID || found.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", found)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at round trip: want %v, got %v", created.CreatedAt, found.CreatedAt)
	}

	_, err = repo.Create(ctx, &domain.User{Name: "Again", Email: "alice@example.com", PasswordHash: "x"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if _, err := repo.FindByEmail(ctx, "ghost@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIssueRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	repo := NewIssueRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com")

	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	issue := &domain.Issue{Title: "First", Description: "# Heading", UserID: owner.ID}
	if err := repo.Create(ctx, issue); err != nil {
		t.Fatalf("create: %v", err)
	}
	if issue.ID == 0 || issue.Status != domain.StatusOpen {
		t.Fatalf("unexpected created issue: %+v", issue)
	}

	got, err := repo.FindByID(ctx, issue.ID, owner.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "First" || got.Description != "# Heading" || !got.CreatedAt.Equal(clock) {
		t.Fatalf("unexpected issue: %+v", got)
	}

	clock = clock.Add(time.Minute)
	closed := domain.StatusClosed
	updated, err := repo.Update(ctx, issue.ID, owner.ID, domain.IssuePatch{Status: &closed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusClosed || updated.Title != "First" {
		t.Fatalf("unexpected updated issue: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("updated_at must advance: created %v updated %v", updated.CreatedAt, updated.UpdatedAt)
	}

	if err := repo.Delete(ctx, issue.ID, owner.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, issue.ID, owner.ID); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("second delete: expected ErrIssueNotFound, got %v", err)
	}
}

func TestIssueRepository_OwnerScoping(t *testing.T) {
	db := openTestDB(t)
	repo := NewIssueRepository(db)
	ctx := context.Background()
	u1 := createUser(t, db, "u1@example.com")
	u2 := createUser(t, db, "u2@example.com")

	a := &domain.Issue{Title: "A", Description: "a", UserID: u1.ID}
	b := &domain.Issue{Title: "B", Description: "b", UserID: u2.ID}
	c := &domain.Issue{Title: "C", Description: "c", UserID: u1.ID}
	for _, i := range []*domain.Issue{a, b, c} {
		if err := repo.Create(ctx, i); err != nil {
			t.Fatalf("create %s: %v", i.Title, err)
		}
	}

	list, err := repo.ListByOwner(ctx, u1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != c.ID {
		t.Fatalf("expected [A C] in id order, got %+v", list)
	}

	if _, err := repo.FindByID(ctx, a.ID, u2.ID); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("foreign find: expected ErrIssueNotFound, got %v", err)
	}
	title := "stolen"
	if _, err := repo.Update(ctx, a.ID, u2.ID, domain.IssuePatch{Title: &title}); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("foreign update: expected ErrIssueNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, a.ID, u2.ID); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("foreign delete: expected ErrIssueNotFound, got %v", err)
	}

	still, err := repo.FindByID(ctx, a.ID, u1.ID)
	if err != nil || still.Title != "A" {
		t.Fatalf("owner's issue must be untouched: %+v %v", still, err)
	}

	empty, err := repo.ListByOwner(ctx, 9999)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list for unknown owner, got %v %v", empty, err)
	}
}
