package handlers

import (
	"context"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/vdb2/vdb2/internal/models"
	"github.com/vdb2/vdb2/internal/server/dto"
)

// SchemaHandler serves the JSON Schemas of the request bodies.
type SchemaHandler struct {
	schemas dto.SchemaResponse
}

// NewSchemaHandler reflects the schemas once.
func NewSchemaHandler() *SchemaHandler {
	objectType := reflect.TypeFor[models.Object]()
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == objectType {
				return &jsonschema.Schema{Type: "object", AdditionalProperties: jsonschema.TrueSchema}
			}
			return nil
		},
	}
	database := r.Reflect(models.NewObject())
	database.Description = "Schema definition of a virtual database; any id is replaced by the assigned one"
	entry := r.Reflect(&dto.CreateEntryRequest{})
	entry.Description = "New entry; other top-level members are kept on the entry"
	upload := r.Reflect(&models.FileUpload{})
	upload.Description = "Inline attachment, replaced by the stored file reference"
	return &SchemaHandler{schemas: dto.SchemaResponse{
		"database":    database,
		"entry":       entry,
		"file_upload": upload,
	}}
}

// Schema returns the request body schemas.
func (h *SchemaHandler) Schema(ctx context.Context, req *dto.SchemaRequest) (*dto.SchemaResponse, error) {
	return &h.schemas, nil
}
