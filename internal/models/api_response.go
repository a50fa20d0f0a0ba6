package models

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/maruel/bibliodb/internal/docstore"
)

// EntityList is a derived collection.
type EntityList []docstore.Record

// EntityResponse is a single entity, written as the bare record.
type EntityResponse struct {
	Entity   docstore.Record
	Status   int
	Affected int
}

// MarshalJSON writes the entity itself.
func (r *EntityResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Entity)
}

// StatusCode returns the HTTP status, 200 unless set.
func (r *EntityResponse) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// AffectedRecords returns the number of document sites written.
func (r *EntityResponse) AffectedRecords() int {
	return r.Affected
}

// PatchResponse reports a partial update.
type PatchResponse struct {
	Message  string          `json:"message"`
	Changes  docstore.Record `json:"changes"`
	Affected int             `json:"-"`
}

// AffectedRecords returns the number of document sites written.
func (r *PatchResponse) AffectedRecords() int {
	return r.Affected
}

// DeleteResponse reports a removal. It has no body.
type DeleteResponse struct {
	Affected int
}

// StatusCode returns 204.
func (r *DeleteResponse) StatusCode() int {
	return http.StatusNoContent
}

// AffectedRecords returns the number of document sites written.
func (r *DeleteResponse) AffectedRecords() int {
	return r.Affected
}

// BroadcastResponse reports a fan-out set.
type BroadcastResponse struct {
	Message  string          `json:"message"`
	Affected int             `json:"affected"`
	Entity   docstore.Record `json:"entity"`
}

// AffectedRecords returns the number of document sites written.
func (r *BroadcastResponse) AffectedRecords() int {
	return r.Affected
}

// HealthResponse is a response from a health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Format  string `json:"format"`
	Shape   string `json:"shape"`
}

// Commit is one revision of the data file.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	Date    time.Time `json:"date"`
}

// HistoryResponse lists revisions of the data file, newest first.
type HistoryResponse struct {
	Commits []Commit `json:"commits"`
}
