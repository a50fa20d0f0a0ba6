package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/maruel/bibliodb/internal/docstore"
	"github.com/maruel/bibliodb/internal/errors"
)

// Validatable is implemented by request types that can validate their fields.
// The Wrap function uses it as a type constraint.
type Validatable interface {
	Validate() error
}

// parseCollection resolves a collection path segment. Unknown collections are
// not found.
func parseCollection(name string) (docstore.Kind, error) {
	k, err := docstore.ParseKind(name)
	if err != nil {
		return "", errors.NotFound(fmt.Sprintf("Collection %q", name)).Wrap(err)
	}
	return k, nil
}

// decodeBody decodes a JSON object request body into a normalized record.
func decodeBody(data []byte) (docstore.Record, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var m map[string]any
	if err := d.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return docstore.Normalize(m).(docstore.Record), nil
}

func requireBody(body docstore.Record) error {
	if body == nil {
		return errors.BadRequest("Missing request body")
	}
	return nil
}

// --- Collections ---

// CollectionRequest addresses a whole collection.
type CollectionRequest struct {
	Collection string        `path:"kind"`
	Kind       docstore.Kind `json:"-"`
}

// Validate resolves the collection.
func (r *CollectionRequest) Validate() error {
	var err error
	r.Kind, err = parseCollection(r.Collection)
	return err
}

// EntityRequest addresses one entity.
type EntityRequest struct {
	Collection string        `path:"kind"`
	ID         string        `path:"id"`
	Kind       docstore.Kind `json:"-"`
}

// Validate resolves the collection.
func (r *EntityRequest) Validate() error {
	var err error
	r.Kind, err = parseCollection(r.Collection)
	return err
}

// CreateEntityRequest appends an entity to a collection.
type CreateEntityRequest struct {
	Collection string `path:"kind"`
	// Borrower is the owning borrower id of a borrow in the nested shape.
	Borrower string          `query:"borrower"`
	Body     docstore.Record `json:"-"`
	Kind     docstore.Kind   `json:"-"`
}

// UnmarshalJSON decodes the whole body as the entity.
func (r *CreateEntityRequest) UnmarshalJSON(data []byte) error {
	var err error
	r.Body, err = decodeBody(data)
	return err
}

// Validate resolves the collection and requires a body.
func (r *CreateEntityRequest) Validate() error {
	var err error
	if r.Kind, err = parseCollection(r.Collection); err != nil {
		return err
	}
	return requireBody(r.Body)
}

// UpdateEntityRequest replaces or patches one entity.
type UpdateEntityRequest struct {
	Collection string          `path:"kind"`
	ID         string          `path:"id"`
	Body       docstore.Record `json:"-"`
	Kind       docstore.Kind   `json:"-"`
}

// UnmarshalJSON decodes the whole body as the entity or partial entity.
func (r *UpdateEntityRequest) UnmarshalJSON(data []byte) error {
	var err error
	r.Body, err = decodeBody(data)
	return err
}

// Validate resolves the collection and requires a body.
func (r *UpdateEntityRequest) Validate() error {
	var err error
	if r.Kind, err = parseCollection(r.Collection); err != nil {
		return err
	}
	return requireBody(r.Body)
}

// BroadcastRequest sets an entity on every record embedding one of its kind.
type BroadcastRequest struct {
	Collection string          `path:"kind"`
	Body       docstore.Record `json:"-"`
	Kind       docstore.Kind   `json:"-"`
}

// UnmarshalJSON decodes the whole body as the entity.
func (r *BroadcastRequest) UnmarshalJSON(data []byte) error {
	var err error
	r.Body, err = decodeBody(data)
	return err
}

// Validate resolves the collection and requires a body.
func (r *BroadcastRequest) Validate() error {
	var err error
	if r.Kind, err = parseCollection(r.Collection); err != nil {
		return err
	}
	return requireBody(r.Body)
}

// --- Server ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op.
func (r *HealthRequest) Validate() error { return nil }

// DefaultHistoryLimit is the number of commits returned when no limit is given.
const DefaultHistoryLimit = 20

// HistoryRequest lists the commits of the data file.
type HistoryRequest struct {
	Limit int `query:"limit"`
}

// Validate checks the limit and applies the default.
func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 || r.Limit > 1000 {
		return errors.BadRequest("limit must be between 0 and 1000").WithDetail("limit", r.Limit)
	}
	if r.Limit == 0 {
		r.Limit = DefaultHistoryLimit
	}
	return nil
}
