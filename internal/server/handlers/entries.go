package handlers

import (
	"context"

	"github.com/vdb2/vdb2/internal/models"
	"github.com/vdb2/vdb2/internal/server/dto"
	"github.com/vdb2/vdb2/internal/storage"
)

// EntryHandler handles entry HTTP requests.
type EntryHandler struct {
	entries *storage.EntryService
}

// NewEntryHandler creates a new entry handler.
func NewEntryHandler(entries *storage.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// ListEntries returns the entries of a database, [] when it has none.
func (h *EntryHandler) ListEntries(ctx context.Context, req *dto.ListEntriesRequest) (*[]*models.Entry, error) {
	l, err := h.entries.List(req.DatabaseID)
	if err != nil {
		return nil, storageError(err)
	}
	return &l, nil
}

// CreateEntry creates an entry, storing its attachments.
//
// An attachment that cannot be stored does not fail the request; its field
// holds storage.ErrorMarker instead.
func (h *EntryHandler) CreateEntry(ctx context.Context, req *dto.CreateEntryRequest) (*models.Entry, error) {
	e, err := h.entries.Create(ctx, req.DatabaseID, req.Values, req.Extra)
	if err != nil {
		return nil, storageError(err)
	}
	return e, nil
}
