package handlers

import (
	"context"

	"github.com/maruel/bibliodb/internal/models"
	"github.com/maruel/bibliodb/internal/resource"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	adapter *resource.Adapter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, adapter *resource.Adapter) *HealthHandler {
	return &HealthHandler{version: version, adapter: adapter}
}

// Health returns the server status and the store configuration.
func (h *HealthHandler) Health(ctx context.Context, req *models.HealthRequest) (*models.HealthResponse, error) {
	return &models.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Format:  h.adapter.Store().Codec().Name(),
		Shape:   h.adapter.Shape().Name(),
	}, nil
}
