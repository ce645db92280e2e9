package dto

import (
	"github.com/invopop/jsonschema"
	"github.com/vdb2/vdb2/internal/history"
)

// HealthResponse is a response from the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SchemaResponse holds the JSON Schemas of the request bodies, keyed by name.
type SchemaResponse map[string]*jsonschema.Schema

// HistoryResponse lists recent data changes, newest first.
type HistoryResponse struct {
	Commits []*history.Commit `json:"commits"`
}
