package models

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/maruel/bibliodb/internal/docstore"
	"github.com/maruel/bibliodb/internal/errors"
)

func TestCollectionRequestValidate(t *testing.T) {
	r := &CollectionRequest{Collection: "books"}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.Kind != docstore.Books {
		t.Errorf("Kind = %q, want books", r.Kind)
	}
	r = &CollectionRequest{Collection: "magazines"}
	err := r.Validate()
	var ews errors.ErrorWithStatus
	if !stderrors.As(err, &ews) || ews.StatusCode() != http.StatusNotFound {
		t.Errorf("Validate() error = %v, want 404", err)
	}
}

func TestCreateEntityRequestBody(t *testing.T) {
	var r CreateEntityRequest
	if err := json.Unmarshal([]byte(`{"book_id": 3, "price": 2.5, "Author": {"aut_id": "a"}}`), &r); err != nil {
		t.Fatal(err)
	}
	r.Collection = "books"
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.Body["book_id"] != int64(3) || r.Body["price"] != 2.5 {
		t.Errorf("Body = %#v, want normalized numbers", r.Body)
	}
	if _, ok := r.Body["Author"].(docstore.Record); !ok {
		t.Errorf("Body[Author] = %T, want docstore.Record", r.Body["Author"])
	}
	if err := json.Unmarshal([]byte(`[1, 2]`), &r); err == nil {
		t.Error("Unmarshal() of an array succeeded, want error")
	}
}

func TestUpdateEntityRequestRequiresBody(t *testing.T) {
	r := &UpdateEntityRequest{Collection: "authors", ID: "1"}
	err := r.Validate()
	var ews errors.ErrorWithStatus
	if !stderrors.As(err, &ews) || ews.Code() != errors.ErrValidationFailed {
		t.Errorf("Validate() error = %v, want VALIDATION_FAILED", err)
	}
}

func TestHistoryRequestValidate(t *testing.T) {
	r := &HistoryRequest{}
	if err := r.Validate(); err != nil || r.Limit != DefaultHistoryLimit {
		t.Errorf("Validate() = %v, Limit = %d, want nil, %d", err, r.Limit, DefaultHistoryLimit)
	}
	r = &HistoryRequest{Limit: -1}
	if err := r.Validate(); err == nil {
		t.Error("Validate() succeeded with a negative limit")
	}
}

func TestEntityResponseJSON(t *testing.T) {
	r := &EntityResponse{Entity: docstore.Record{"aut_id": "a"}, Status: http.StatusCreated}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"aut_id":"a"}` {
		t.Errorf("Marshal() = %s, want the bare entity", b)
	}
	if r.StatusCode() != http.StatusCreated {
		t.Errorf("StatusCode() = %d, want 201", r.StatusCode())
	}
	if got := (&EntityResponse{}).StatusCode(); got != http.StatusOK {
		t.Errorf("StatusCode() = %d, want 200", got)
	}
}

func TestEntityType(t *testing.T) {
	for _, k := range docstore.Kinds {
		if EntityType(k).Name() != k.Singular() {
			t.Errorf("EntityType(%s) = %s, want %s", k, EntityType(k).Name(), k.Singular())
		}
	}
}
