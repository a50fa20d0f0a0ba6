package handlers

import (
	"context"

	apierrors "github.com/maruel/bibliodb/internal/errors"
	"github.com/maruel/bibliodb/internal/history"
	"github.com/maruel/bibliodb/internal/models"
)

// HistoryHandler lists the revisions of the data file.
type HistoryHandler struct {
	repo *history.Repo
	file string
}

// NewHistoryHandler creates a new history handler. repo may be nil when
// history is disabled.
func NewHistoryHandler(repo *history.Repo, file string) *HistoryHandler {
	return &HistoryHandler{repo: repo, file: file}
}

// History returns the latest commits of the data file.
func (h *HistoryHandler) History(ctx context.Context, req *models.HistoryRequest) (*models.HistoryResponse, error) {
	if h.repo == nil {
		return nil, apierrors.NotImplemented("History")
	}
	commits, err := h.repo.Log(h.file, req.Limit)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to read history", err)
	}
	out := &models.HistoryResponse{Commits: make([]models.Commit, 0, len(commits))}
	for _, c := range commits {
		out.Commits = append(out.Commits, models.Commit{
			Hash:    c.Hash,
			Message: c.Message,
			Author:  c.Author,
			Email:   c.Email,
			Date:    c.When,
		})
	}
	return out, nil
}
