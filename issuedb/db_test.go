package issuedb

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "issues.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGet(t *testing.T) {
	db := openTestDB(t)

	created, err := db.Create(Issue{
		Title:       "Flaky retry loop",
		Description: "Retries hang when the remote stalls",
		Labels:      []string{"bug", "agent"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create should generate an ID")
	}
	if created.State != "open" {
		t.Errorf("State = %q, want open", created.State)
	}

	got, err := db.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != created.Title {
		t.Errorf("Title = %q, want %q", got.Title, created.Title)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "bug" {
		t.Errorf("Labels = %v", got.Labels)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestList_FilterByState(t *testing.T) {
	db := openTestDB(t)

	a, _ := db.Create(Issue{Title: "open one"})
	if _, err := db.Create(Issue{Title: "closed one"}); err != nil {
		t.Fatal(err)
	}

	issues, err := db.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("List = %d issues, want 2", len(issues))
	}

	closedID := issues[0].ID
	if closedID == a.ID {
		closedID = issues[1].ID
	}
	if err := db.SetState(closedID, "closed"); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	open, err := db.List("open")
	if err != nil {
		t.Fatalf("List(open): %v", err)
	}
	if len(open) != 1 || open[0].ID != a.ID {
		t.Errorf("List(open) = %v, want only %s", open, a.ID)
	}
}

func TestSetState_NotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetState("missing", "closed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetState error = %v, want ErrNotFound", err)
	}
}

func TestComments(t *testing.T) {
	db := openTestDB(t)

	issue, err := db.Create(Issue{Title: "needs discussion"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.AddComment(issue.ID, "agent-1", "first"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := db.AddComment(issue.ID, "agent-1", "second"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	comments, err := db.Comments(issue.ID)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Comments = %d, want 2", len(comments))
	}
	if comments[0].Body != "first" {
		t.Errorf("first comment = %q, want oldest first ordering", comments[0].Body)
	}

	// Commenting on a missing issue fails cleanly.
	if _, err := db.AddComment("missing", "agent-1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddComment error = %v, want ErrNotFound", err)
	}
}
