package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/maruel/bibliodb/internal/models"
	"github.com/maruel/bibliodb/internal/resource"
)

// EntityHandler handles the CRUD endpoints of every collection.
type EntityHandler struct {
	adapter *resource.Adapter
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(adapter *resource.Adapter) *EntityHandler {
	return &EntityHandler{adapter: adapter}
}

// List returns a whole collection.
func (h *EntityHandler) List(ctx context.Context, req *models.CollectionRequest) (*models.EntityList, error) {
	recs, err := h.adapter.List(req.Kind)
	if err != nil {
		return nil, apiError(err)
	}
	out := models.EntityList(recs)
	if out == nil {
		out = models.EntityList{}
	}
	return &out, nil
}

// Get returns one entity.
func (h *EntityHandler) Get(ctx context.Context, req *models.EntityRequest) (*models.EntityResponse, error) {
	rec, err := h.adapter.Get(req.Kind, req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &models.EntityResponse{Entity: rec}, nil
}

// Create appends an entity and returns it with its id.
func (h *EntityHandler) Create(ctx context.Context, req *models.CreateEntityRequest) (*models.EntityResponse, error) {
	res, err := h.adapter.Create(req.Kind, req.Body, resource.CreateOptions{Parent: req.Borrower})
	if err != nil {
		return nil, apiError(err)
	}
	return &models.EntityResponse{Entity: res.Record, Status: http.StatusCreated, Affected: res.Affected}, nil
}

// Replace overwrites an entity.
func (h *EntityHandler) Replace(ctx context.Context, req *models.UpdateEntityRequest) (*models.EntityResponse, error) {
	res, err := h.adapter.Replace(req.Kind, req.ID, req.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &models.EntityResponse{Entity: res.Record, Affected: res.Affected}, nil
}

// Patch merges fields into an entity.
func (h *EntityHandler) Patch(ctx context.Context, req *models.UpdateEntityRequest) (*models.PatchResponse, error) {
	res, err := h.adapter.Patch(req.Kind, req.ID, req.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &models.PatchResponse{
		Message:  fmt.Sprintf("%s %s updated", req.Kind.Singular(), req.ID),
		Changes:  req.Body,
		Affected: res.Affected,
	}, nil
}

// Delete removes an entity.
func (h *EntityHandler) Delete(ctx context.Context, req *models.EntityRequest) (*models.DeleteResponse, error) {
	n, err := h.adapter.Remove(req.Kind, req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &models.DeleteResponse{Affected: n}, nil
}

// Broadcast sets an entity on every record embedding one of its kind.
func (h *EntityHandler) Broadcast(ctx context.Context, req *models.BroadcastRequest) (*models.BroadcastResponse, error) {
	res, err := h.adapter.Broadcast(req.Kind, req.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &models.BroadcastResponse{
		Message:  fmt.Sprintf("%s set on %d records", req.Kind.Singular(), res.Affected),
		Affected: res.Affected,
		Entity:   res.Record,
	}, nil
}
