package dto

import (
	"encoding/json"

	"github.com/vdb2/vdb2/internal/models"
)

// decodeBody decodes a request body that must be a JSON object.
func decodeBody(data []byte) (*models.Object, error) {
	var v models.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, BadRequest("Invalid request body").Wrap(err)
	}
	o, ok := v.AsObject()
	if !ok {
		return nil, BadRequest("Request body must be a JSON object").WithDetail("kind", v.Kind().String())
	}
	return o, nil
}

// --- Health ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is a request for the JSON Schemas of request bodies.
type SchemaRequest struct{}

// Validate is a no-op for SchemaRequest.
func (r *SchemaRequest) Validate() error {
	return nil
}

// --- Databases ---

// ListDatabasesRequest is a request to list all databases.
type ListDatabasesRequest struct{}

// Validate is a no-op for ListDatabasesRequest.
func (r *ListDatabasesRequest) Validate() error {
	return nil
}

// GetDatabaseRequest is a request to get one database.
type GetDatabaseRequest struct {
	ID int `path:"id"`
}

// Validate validates the get database request fields.
func (r *GetDatabaseRequest) Validate() error {
	return validateID(r.ID)
}

// CreateDatabaseRequest is a request to create a database. The whole body is
// the schema definition; any "id" in it is ignored.
type CreateDatabaseRequest struct {
	Fields *models.Object
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CreateDatabaseRequest) UnmarshalJSON(data []byte) error {
	o, err := decodeBody(data)
	if err != nil {
		return err
	}
	r.Fields = o
	return nil
}

// Validate validates the create database request fields.
func (r *CreateDatabaseRequest) Validate() error {
	if r.Fields == nil {
		return BadRequest("Request body must be a JSON object")
	}
	return nil
}

// --- Entries ---

// ListEntriesRequest is a request to list the entries of a database.
type ListEntriesRequest struct {
	DatabaseID int `path:"id"`
}

// Validate validates the list entries request fields.
func (r *ListEntriesRequest) Validate() error {
	return validateID(r.DatabaseID)
}

// CreateEntryRequest is a request to create an entry.
//
// Values maps field names to values; a value that is an object holding string
// "file_data" and "file_name" members is an attachment. Other top-level keys
// are kept on the entry as Extra.
type CreateEntryRequest struct {
	DatabaseID int            `path:"id" json:"-"`
	Values     *models.Object `json:"values" jsonschema:"description=Field values; attachments are objects with file_data and file_name"`
	Extra      *models.Object `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CreateEntryRequest) UnmarshalJSON(data []byte) error {
	o, err := decodeBody(data)
	if err != nil {
		return err
	}
	if v, ok := o.Delete("values"); ok {
		values, ok := v.AsObject()
		if !ok {
			return BadRequest("values must be a JSON object").WithDetail("field", "values")
		}
		r.Values = values
	}
	r.Extra = o
	return nil
}

// Validate validates the create entry request fields.
func (r *CreateEntryRequest) Validate() error {
	if err := validateID(r.DatabaseID); err != nil {
		return err
	}
	if r.Values == nil {
		return MissingField("values")
	}
	return nil
}

// --- History ---

// ListHistoryRequest is a request for recent data changes.
type ListHistoryRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the list history request fields.
func (r *ListHistoryRequest) Validate() error {
	if r.Limit < 0 {
		return BadRequest("limit must be non-negative").WithDetail("field", "limit")
	}
	return nil
}

func validateID(id int) error {
	if id <= 0 {
		return BadRequest("id must be a positive integer").WithDetail("field", "id")
	}
	return nil
}
