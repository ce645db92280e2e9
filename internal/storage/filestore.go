// Package storage implements the document store services and the
// attachment file store of vdb2.
package storage

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vdb2/vdb2/internal/jsondb"
	"github.com/vdb2/vdb2/internal/models"
)

// RefPrefix is the first element of every file reference; it is also the
// URL prefix attachments are served under.
const RefPrefix = "vdb_files"

// FileStore stores entry attachments.
//
// Storage model: one bucket directory per database under the root, holding
// files named <entry id>_<field>_<original name>.
type FileStore struct {
	rootDir  string
	maxBytes int64
}

// NewFileStore creates the attachment root if needed. maxBytes bounds one
// decoded attachment; 0 means unlimited.
func NewFileStore(rootDir string, maxBytes int64) (*FileStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for user data directories
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &FileStore{rootDir: rootDir, maxBytes: maxBytes}, nil
}

// Root returns the attachment root directory.
func (s *FileStore) Root() string {
	return s.rootDir
}

// BucketName returns the bucket directory name of a database.
func BucketName(databaseID int) string {
	return "vdb_" + strconv.Itoa(databaseID)
}

// EnsureBucket creates the bucket directory of a database.
func (s *FileStore) EnsureBucket(databaseID int) error {
	dir := filepath.Join(s.rootDir, BucketName(databaseID))
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for user data directories
		return fmt.Errorf("failed to create bucket %s: %w", BucketName(databaseID), err)
	}
	return nil
}

// Ref returns the reference Save would store an attachment under, e.g.
// "vdb_files/vdb_2/3_photo_a.jpg". Each element is URL path escaped, so a
// reference can be appended to the server URL as is.
func (s *FileStore) Ref(databaseID, entryID int, field, fileName string) (string, error) {
	name, err := storedName(entryID, field, fileName)
	if err != nil {
		return "", err
	}
	return path.Join(RefPrefix, BucketName(databaseID), url.PathEscape(name)), nil
}

// Save decodes an attachment and writes it into the database bucket,
// replacing any file of the same name. It returns the reference of the
// stored file, see Ref.
func (s *FileStore) Save(databaseID, entryID int, field string, u models.FileUpload) (string, error) {
	name, err := storedName(entryID, field, u.FileName)
	if err != nil {
		return "", err
	}
	data, err := decodePayload(u.FileData)
	if err != nil {
		return "", err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrAttachmentTooLarge, len(data), s.maxBytes)
	}

	if err := s.EnsureBucket(databaseID); err != nil {
		return "", err
	}
	bucket, err := jsondb.NewFileBackend(filepath.Join(s.rootDir, BucketName(databaseID)))
	if err != nil {
		return "", err
	}
	if err := bucket.Store(name, data); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return path.Join(RefPrefix, BucketName(databaseID), url.PathEscape(name)), nil
}

// Remove deletes the file behind a reference returned by Save.
func (s *FileStore) Remove(ref string) error {
	escaped, ok := strings.CutPrefix(ref, RefPrefix+"/")
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, ref)
	}
	rel, err := url.PathUnescape(escaped)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, ref)
	}
	r, err := os.OpenRoot(s.rootDir)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	return r.Remove(filepath.FromSlash(rel))
}

// Open opens a stored file by its path relative to the root. Paths escaping
// the root and directories are reported as fs.ErrNotExist.
func (s *FileStore) Open(rel string) (*os.File, fs.FileInfo, error) {
	f, err := os.OpenInRoot(s.rootDir, filepath.FromSlash(rel))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w", rel, fs.ErrNotExist)
	}
	return f, info, nil
}

// storedName returns <entry id>_<field>_<original name>, each part reduced to
// a single path element.
func storedName(entryID int, field, fileName string) (string, error) {
	fieldName, err := cleanName(field)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	original, err := cleanName(fileName)
	if err != nil {
		return "", fmt.Errorf("file %q: %w", fileName, err)
	}
	return strconv.Itoa(entryID) + "_" + fieldName + "_" + original, nil
}

// cleanName reduces s to its last path element.
func cleanName(s string) (string, error) {
	s = path.Base(strings.ReplaceAll(s, "\\", "/"))
	if s == "." || s == ".." || s == "/" || strings.ContainsRune(s, 0) {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// decodePayload strips an optional "data:<mime>;base64," prefix and decodes
// the rest. Unpadded input is accepted.
func decodePayload(s string) ([]byte, error) {
	if _, rest, ok := strings.Cut(s, ","); ok {
		s = rest
	}
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil && !strings.Contains(s, "=") {
		b, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return b, nil
}
