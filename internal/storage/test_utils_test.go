package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/vdb2/vdb2/internal/config"
	"github.com/vdb2/vdb2/internal/models"
)

// newTestConfig returns a configuration rooted in the test's temp directory.
func newTestConfig(t testing.TB, store string) *config.Config {
	t.Helper()
	root := t.TempDir()
	c := config.Default(false, "")
	c.DataDir = filepath.Join(root, "data")
	c.FilesDir = filepath.Join(root, "vdb_files")
	c.StaticDir = filepath.Join(root, "static")
	c.Store = store
	return c
}

// newTestStores bootstraps stores with default quotas.
func newTestStores(t testing.TB) (*Stores, *config.Config) {
	t.Helper()
	cfg := newTestConfig(t, config.StoreJSON)
	s, err := Bootstrap(t.Context(), cfg, config.DefaultServerConfig().Quotas)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, cfg
}

// object decodes a JSON object literal.
func object(t testing.TB, s string) *models.Object {
	t.Helper()
	var v models.Value
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("invalid JSON %s: %v", s, err)
	}
	o, ok := v.AsObject()
	if !ok {
		t.Fatalf("not an object: %s", s)
	}
	return o
}

func mustJSON(t testing.TB, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
