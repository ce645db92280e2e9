package handlers

import (
	"context"

	"github.com/vdb2/vdb2/internal/models"
	"github.com/vdb2/vdb2/internal/server/dto"
	"github.com/vdb2/vdb2/internal/storage"
)

// DatabaseHandler handles virtual database HTTP requests.
type DatabaseHandler struct {
	dbs *storage.DatabaseService
}

// NewDatabaseHandler creates a new database handler.
func NewDatabaseHandler(dbs *storage.DatabaseService) *DatabaseHandler {
	return &DatabaseHandler{dbs: dbs}
}

// ListDatabases returns every database in creation order.
func (h *DatabaseHandler) ListDatabases(ctx context.Context, req *dto.ListDatabasesRequest) (*models.DatabaseList, error) {
	l := h.dbs.List()
	return &l, nil
}

// GetDatabase returns one database.
func (h *DatabaseHandler) GetDatabase(ctx context.Context, req *dto.GetDatabaseRequest) (*models.VirtualDatabase, error) {
	d, err := h.dbs.Get(req.ID)
	if err != nil {
		return nil, storageError(err)
	}
	return d, nil
}

// CreateDatabase creates a database from the request body and returns it
// with its assigned id.
func (h *DatabaseHandler) CreateDatabase(ctx context.Context, req *dto.CreateDatabaseRequest) (*models.VirtualDatabase, error) {
	d, err := h.dbs.Create(ctx, req.Fields)
	if err != nil {
		return nil, storageError(err)
	}
	return d, nil
}
