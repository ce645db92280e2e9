// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/vdb2/vdb2/internal/history"
	"github.com/vdb2/vdb2/internal/storage"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Databases *storage.DatabaseService
	Entries   *storage.EntryService
	Files     *storage.FileStore
	History   *history.Recorder // may be nil
}
