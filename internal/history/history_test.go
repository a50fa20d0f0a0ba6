package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitAndLog(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, Author{Name: "bibliodb", Email: "bibliodb@localhost"})
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "db.json")

	commits, err := r.Log(file, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 0 {
		t.Fatalf("Log() = %v, want none on an empty repo", commits)
	}

	for i, content := range []string{`[]`, `[{"borrow_transactionid": "T1"}]`} {
		if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := r.Commit(t.Context(), file, "write "+string(rune('A'+i))); err != nil {
			t.Fatal(err)
		}
	}
	// Unchanged content does not create a commit.
	if err := r.Commit(t.Context(), file, "noop"); err != nil {
		t.Fatal(err)
	}
	// Untracked files next to the data file are ignored.
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP=:1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.Commit(t.Context(), file, "noop"); err != nil {
		t.Fatal(err)
	}

	commits, err = r.Log(file, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Fatalf("Log() = %d commits, want 2", len(commits))
	}
	if commits[0].Message != "write B" || commits[1].Message != "write A" {
		t.Errorf("Log() messages = %q, %q, want newest first", commits[0].Message, commits[1].Message)
	}
	if commits[0].Author != "bibliodb" || commits[0].Email != "bibliodb@localhost" {
		t.Errorf("Log() author = %s <%s>", commits[0].Author, commits[0].Email)
	}

	commits, err = r.Log(file, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 1 {
		t.Errorf("Log(limit=1) = %d commits, want 1", len(commits))
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, Author{Name: "a", Email: "a@b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir, Author{Name: "a", Email: "a@b"}); err != nil {
		t.Errorf("Open() of an existing repo error = %v", err)
	}
}

func TestCommitOutsideRepo(t *testing.T) {
	r, err := Open(t.TempDir(), Author{Name: "a", Email: "a@b"})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Commit(t.Context(), filepath.Join(t.TempDir(), "db.json"), "x"); err == nil {
		t.Error("Commit() of a file outside the repo succeeded")
	}
}
