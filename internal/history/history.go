// Package history records the revisions of the data file in a git repository
// using go-git (pure Go, no git binary dependency).
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Author identifies who made a change.
type Author struct {
	Name  string
	Email string
}

// Commit is one revision.
type Commit struct {
	Hash    string
	Message string
	Author  string
	Email   string
	When    time.Time
}

// Repo is the git repository holding the data file.
type Repo struct {
	dir    string
	author Author
	repo   *gogit.Repository
	mu     sync.Mutex
}

// Open opens the repository at dir, initializing it when needed. author is
// the default commit author.
func Open(dir string, author Author) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		if repo, err = gogit.PlainInit(dir, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = author.Name
		cfg.User.Email = author.Email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}
	return &Repo{dir: dir, author: author, repo: repo}, nil
}

// Dir returns the working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// rel returns path relative to the working directory, slash separated.
func (r *Repo) rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(r.dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of %s", path, r.dir)
	}
	return filepath.ToSlash(rel), nil
}

// Commit stages file and commits it with msg. It is a no-op when the file is
// unchanged.
func (r *Repo) Commit(ctx context.Context, file, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel, err := r.rel(file)
	if err != nil {
		return err
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(rel); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if st, ok := status[rel]; !ok || st.Staging == gogit.Unmodified {
		return nil
	}
	now := time.Now()
	sig := &object.Signature{Name: r.author.Name, Email: r.author.Email, When: now}
	hash, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	slog.DebugContext(ctx, "Committed data file", "file", rel, "hash", hash.String())
	return nil
}

// Log returns up to limit commits touching file, newest first.
func (r *Repo) Log(file string, limit int) ([]Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rel, err := r.rel(file)
	if err != nil {
		return nil, err
	}
	iter, err := r.repo.Log(&gogit.LogOptions{FileName: &rel})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// No commit yet.
		return []Commit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	out := []Commit{}
	for range limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		out = append(out, Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
		})
	}
	return out, nil
}
