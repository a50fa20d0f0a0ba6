package handlers

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/maruel/bibliodb/internal/models"
)

// Schema returns the JSON Schema of the documented entity of a collection.
//
// Records are open maps; the schema describes the fields the library knows
// about and is not enforced on writes.
func Schema(ctx context.Context, req *models.CollectionRequest) (*jsonschema.Schema, error) {
	// Inline properties instead of $ref.
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, AllowAdditionalProperties: true}
	s := r.ReflectFromType(models.EntityType(req.Kind))
	s.Title = req.Kind.Singular()
	return s, nil
}
