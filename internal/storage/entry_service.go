package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vdb2/vdb2/internal/jsondb"
	"github.com/vdb2/vdb2/internal/models"
)

// EntryService handles entry business logic, including attachments.
type EntryService struct {
	doc   *jsondb.Document[models.EntryIndex]
	dbs   *DatabaseService
	files *FileStore
	now   func() time.Time
}

// NewEntryService creates a new entry service.
func NewEntryService(doc *jsondb.Document[models.EntryIndex], dbs *DatabaseService, files *FileStore) *EntryService {
	return &EntryService{doc: doc, dbs: dbs, files: files, now: time.Now}
}

// List returns the entries of a database in creation order, an empty slice
// when it has none. The result must not be mutated.
func (s *EntryService) List(databaseID int) ([]*models.Entry, error) {
	if !s.dbs.Exists(databaseID) {
		return nil, fmt.Errorf("%w: %d", ErrDatabaseNotFound, databaseID)
	}
	x := s.doc.Get()
	if entries := x[x.Key(databaseID)]; entries != nil {
		return entries, nil
	}
	return []*models.Entry{}, nil
}

// Create assigns the next id within the database to a new entry, stores its
// attachments and persists the index.
//
// Every value holding an upload is replaced by the reference of the stored
// file, or by ErrorMarker when that one file could not be saved; the entry is
// created regardless. extra holds other top-level keys to keep on the entry.
func (s *EntryService) Create(ctx context.Context, databaseID int, values, extra *models.Object) (*models.Entry, error) {
	if !s.dbs.Exists(databaseID) {
		return nil, fmt.Errorf("%w: %d", ErrDatabaseNotFound, databaseID)
	}
	if values == nil {
		values = models.NewObject()
	}
	var created *models.Entry
	var saved []string
	err := s.doc.Modify(func(x models.EntryIndex) (models.EntryIndex, error) {
		e := &models.Entry{
			ID:        x.NextID(databaseID),
			CreatedAt: s.now().UTC(),
			Values:    models.NewObject(),
			Extra:     models.CloneObject(extra),
		}
		for _, k := range []string{"id", "created_at", "values"} {
			e.Extra.Delete(k)
		}
		used := map[string]string{}
		for field, v := range values.All() {
			if u, ok := v.AsUpload(); ok {
				ref, err := s.saveAttachment(databaseID, e.ID, field, u, used)
				if err != nil {
					slog.WarnContext(ctx, "Failed to save attachment", "db", databaseID, "entry", e.ID, "field", field, "err", err)
					v = models.String(ErrorMarker)
				} else {
					saved = append(saved, ref)
					v = models.String(ref)
				}
			}
			e.Values.Set(field, v)
		}
		key := x.Key(databaseID)
		x[key] = append(x[key], e)
		created = e
		return x, nil
	})
	if err != nil {
		for _, ref := range saved {
			if rmErr := s.files.Remove(ref); rmErr != nil {
				slog.WarnContext(ctx, "Failed to remove orphan attachment", "ref", ref, "err", rmErr)
			}
		}
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	slog.InfoContext(ctx, "Entry created", "db", databaseID, "entry", created.ID, "files", len(saved))
	return created, nil
}

// saveAttachment stores one field's attachment. used maps the references
// already taken by this entry to their field, so that two fields reducing to
// the same file name never overwrite each other.
func (s *EntryService) saveAttachment(databaseID, entryID int, field string, u models.FileUpload, used map[string]string) (string, error) {
	ref, err := s.files.Ref(databaseID, entryID, field, u.FileName)
	if err != nil {
		return "", err
	}
	if other, ok := used[ref]; ok {
		return "", fmt.Errorf("%w: %q", ErrFileNameInUse, other)
	}
	if ref, err = s.files.Save(databaseID, entryID, field, u); err != nil {
		return "", err
	}
	used[ref] = field
	return ref, nil
}
