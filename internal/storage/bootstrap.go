package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/vdb2/vdb2/internal/config"
	"github.com/vdb2/vdb2/internal/jsondb"
	"github.com/vdb2/vdb2/internal/models"
)

// Stores groups the services opened by Bootstrap.
type Stores struct {
	Databases *DatabaseService
	Entries   *EntryService
	Files     *FileStore

	closer io.Closer
}

// Close releases the document backend.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Bootstrap creates the data, static and files directories, opens both
// documents with the configured backend and seeds the missing ones.
//
// A document that exists but cannot be decoded fails with jsondb.ErrCorrupt;
// it is never reset.
func Bootstrap(ctx context.Context, cfg *config.Config, quotas config.Quotas) (*Stores, error) {
	for _, dir := range []string{cfg.DataDir, cfg.StaticDir, cfg.FilesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	var backend jsondb.Backend
	var closer io.Closer
	switch cfg.Store {
	case config.StoreSQLite:
		b, err := jsondb.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		backend, closer = b, b
	case config.StoreJSON, "":
		b, err := jsondb.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	s, err := open(ctx, backend, cfg.FilesDir, quotas)
	if err != nil {
		if closer != nil {
			err = errors.Join(err, closer.Close())
		}
		return nil, err
	}
	s.closer = closer
	slog.InfoContext(ctx, "Storage ready", "store", cfg.Store, "data", cfg.DataDir, "files", cfg.FilesDir, "databases", len(s.Databases.List()))
	return s, nil
}

func open(ctx context.Context, backend jsondb.Backend, filesDir string, quotas config.Quotas) (*Stores, error) {
	files, err := NewFileStore(filesDir, quotas.MaxAttachmentBytes)
	if err != nil {
		return nil, err
	}
	dbDoc, err := jsondb.Open(backend, config.DatabasesFile, models.DatabaseList{})
	if err != nil {
		return nil, err
	}
	entryDoc, err := jsondb.Open(backend, config.EntriesFile, models.EntryIndex{})
	if err != nil {
		return nil, err
	}
	dbs := NewDatabaseService(dbDoc, files)
	for key := range entryDoc.Get() {
		if id, _ := strconv.Atoi(key); !dbs.Exists(id) {
			slog.WarnContext(ctx, "Entries reference an unknown database", "db", key)
		}
	}
	return &Stores{
		Databases: dbs,
		Entries:   NewEntryService(entryDoc, dbs, files),
		Files:     files,
	}, nil
}
