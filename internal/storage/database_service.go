package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vdb2/vdb2/internal/jsondb"
	"github.com/vdb2/vdb2/internal/models"
)

// DatabaseService handles virtual database business logic.
type DatabaseService struct {
	doc   *jsondb.Document[models.DatabaseList]
	files *FileStore
}

// NewDatabaseService creates a new database service.
func NewDatabaseService(doc *jsondb.Document[models.DatabaseList], files *FileStore) *DatabaseService {
	return &DatabaseService{doc: doc, files: files}
}

// List returns all databases in creation order. The result must not be
// mutated.
func (s *DatabaseService) List() models.DatabaseList {
	if l := s.doc.Get(); l != nil {
		return l
	}
	return models.DatabaseList{}
}

// Get retrieves a database by id.
func (s *DatabaseService) Get(id int) (*models.VirtualDatabase, error) {
	d, ok := s.doc.Get().Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDatabaseNotFound, id)
	}
	return d, nil
}

// Exists reports whether a database with this id exists.
func (s *DatabaseService) Exists(id int) bool {
	_, ok := s.doc.Get().Find(id)
	return ok
}

// Create assigns the next id to a new database, creates its attachment
// bucket and persists the list.
//
// A client supplied "id" field is ignored.
func (s *DatabaseService) Create(ctx context.Context, fields *models.Object) (*models.VirtualDatabase, error) {
	var created *models.VirtualDatabase
	err := s.doc.Modify(func(l models.DatabaseList) (models.DatabaseList, error) {
		d := &models.VirtualDatabase{ID: l.NextID(), Fields: models.CloneObject(fields)}
		d.Fields.Delete("id")
		if err := s.files.EnsureBucket(d.ID); err != nil {
			return nil, err
		}
		created = d
		return append(l, d), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	slog.InfoContext(ctx, "Database created", "db", created.ID)
	return created, nil
}
