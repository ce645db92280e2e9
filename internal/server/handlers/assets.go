// Serves stored attachments and static assets.

package handlers

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/vdb2/vdb2/internal/server/dto"
	"github.com/vdb2/vdb2/internal/storage"
)

func init() {
	// Register MIME types not in the standard library.
	for _, pair := range [][2]string{
		{".aac", "audio/aac"},
		{".flac", "audio/flac"},
		{".heic", "image/heic"},
		{".jsonl", "application/jsonl"},
		{".md", "text/markdown"},
		{".wav", "audio/wav"},
		{".webp", "image/webp"},
	} {
		if err := mime.AddExtensionType(pair[0], pair[1]); err != nil {
			panic(err)
		}
	}
}

// contentType guesses the content type from the file extension.
func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// AssetHandler serves attachments and static files.
type AssetHandler struct {
	files     *storage.FileStore
	staticDir string
	fallback  fs.FS
}

// NewAssetHandler creates a new asset handler. fallback provides the landing
// page when staticDir has no index.html; it may be nil.
func NewAssetHandler(files *storage.FileStore, staticDir string, fallback fs.FS) *AssetHandler {
	return &AssetHandler{files: files, staticDir: staticDir, fallback: fallback}
}

// ServeAttachment streams a stored attachment, e.g.
// GET /vdb_files/vdb_2/3_photo_a.jpg.
func (h *AssetHandler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	rel := r.PathValue("path")
	f, info, err := h.files.Open(rel)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.ErrorContext(r.Context(), "Failed to open attachment", "path", rel, "err", err)
		}
		writeErrorResponse(w, dto.FileNotFound(path.Join(storage.RefPrefix, rel)))
		return
	}
	defer func() { _ = f.Close() }()
	w.Header().Set("Content-Type", contentType(info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// ServeIndex serves the landing page.
func (h *AssetHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	f, info, err := openInRoot(h.staticDir, "index.html")
	if err == nil {
		defer func() { _ = f.Close() }()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}
	if h.fallback != nil {
		if b, err := fs.ReadFile(h.fallback, "index.html"); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(b))
			return
		}
	}
	writeErrorResponse(w, dto.FileNotFound("/"))
}

// ServeStatic serves any other path from the static directory. A leading
// /static/ is accepted. Directories are never listed.
func (h *AssetHandler) ServeStatic(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	rel = strings.TrimPrefix(rel, "static/")
	if rel == "" || rel == "static" {
		h.ServeIndex(w, r)
		return
	}
	f, info, err := openInRoot(h.staticDir, rel)
	if err != nil {
		writeErrorResponse(w, dto.FileNotFound(r.URL.Path))
		return
	}
	defer func() { _ = f.Close() }()
	w.Header().Set("Content-Type", contentType(info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// openInRoot opens a regular file below root.
func openInRoot(root, rel string) (*os.File, fs.FileInfo, error) {
	f, err := os.OpenInRoot(root, filepath.FromSlash(rel))
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = fs.ErrNotExist
	}
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, info, nil
}
