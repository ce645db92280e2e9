package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		c := Default(false, "")
		if c.Addr() != "localhost:8080" {
			t.Errorf("Addr() = %q", c.Addr())
		}
		if c.DataDir != "data" || c.FilesDir != "vdb_files" || c.StaticDir != "static" {
			t.Errorf("dirs = %q %q %q", c.DataDir, c.FilesDir, c.StaticDir)
		}
	})
	t.Run("hosted", func(t *testing.T) {
		c := Default(true, "")
		if c.Addr() != "0.0.0.0:8080" {
			t.Errorf("Addr() = %q", c.Addr())
		}
		if want := filepath.Join(DefaultStorageRoot, "data"); c.DataDir != want {
			t.Errorf("DataDir = %q, want %q", c.DataDir, want)
		}
		if want := filepath.Join(DefaultStorageRoot, "vdb_files"); c.FilesDir != want {
			t.Errorf("FilesDir = %q, want %q", c.FilesDir, want)
		}
	})
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	dotenv := "# comment\nPORT=9000\nLOG_LEVEL=\"debug\"\nVDB2_STORE=sqlite\n"
	if err := os.WriteFile(filepath.Join(dataDir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(mapLookup(map[string]string{
		"RENDER":            "true",
		"VDB2_STORAGE_ROOT": root,
		"PORT":              "9100",
		"VDB2_HISTORY":      "1",
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 9100 {
		t.Errorf("Port = %d, environment must win over .env", c.Port)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want .env value", c.LogLevel)
	}
	if c.Store != StoreSQLite {
		t.Errorf("Store = %q", c.Store)
	}
	if !c.History {
		t.Error("History not enabled")
	}
	if c.DataDir != dataDir {
		t.Errorf("DataDir = %q, want %q", c.DataDir, dataDir)
	}
	if c.Addr() != "0.0.0.0:9100" {
		t.Errorf("Addr() = %q", c.Addr())
	}
}

func TestLoad_Invalid(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port not a number", map[string]string{"PORT": "http"}, "invalid PORT"},
		{"port zero", map[string]string{"PORT": "0"}, "out of range"},
		{"port too large", map[string]string{"PORT": "70000"}, "out of range"},
		{"store", map[string]string{"VDB2_STORE": "mongo"}, "unknown store"},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.env["RENDER"] = "1"
			tt.env["VDB2_STORAGE_ROOT"] = root
			_, err := Load(mapLookup(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
		wantErr bool
	}{
		{"plain", "A=1\nB = two \n", map[string]string{"A": "1", "B": "two"}, false},
		{"double quotes", `A="x y\n"`, map[string]string{"A": "x y\n"}, false},
		{"single quotes", `A='x y'`, map[string]string{"A": "x y"}, false},
		{"export prefix", "export A=1", map[string]string{"A": "1"}, false},
		{"no equal sign skipped", "JUNK\nA=1", map[string]string{"A": "1"}, false},
		{"unbalanced", `A='x`, nil, true},
		{"bad escape", `A="\q"`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			got, err := LoadDotEnv(dir)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}

	got, err := LoadDotEnv(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(got) != 0 {
		t.Errorf("missing file: got %v, %v", got, err)
	}
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(s)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", s, got, err)
		}
	}
}

func TestLoadServerConfig(t *testing.T) {
	t.Run("creates defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if *cfg != DefaultServerConfig() {
			t.Errorf("got %+v, want defaults", cfg)
		}
		raw, err := os.ReadFile(filepath.Join(dir, ServerConfigFile))
		if err != nil {
			t.Fatalf("file not created: %v", err)
		}
		if !strings.Contains(string(raw), "max_attachment_bytes: 16777216") {
			t.Errorf("unexpected content:\n%s", raw)
		}
	})
	t.Run("partial file keeps defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := "rate_limits:\n  write_rate_per_min: 0\n"
		if err := os.WriteFile(filepath.Join(dir, ServerConfigFile), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.RateLimits.WriteRatePerMin != 0 {
			t.Errorf("WriteRatePerMin = %d, want 0", cfg.RateLimits.WriteRatePerMin)
		}
		if cfg.RateLimits.ReadRatePerMin != 6000 {
			t.Errorf("ReadRatePerMin = %d, want default", cfg.RateLimits.ReadRatePerMin)
		}
		if cfg.Quotas != DefaultServerConfig().Quotas {
			t.Errorf("Quotas = %+v", cfg.Quotas)
		}
	})
	t.Run("negative rejected", func(t *testing.T) {
		dir := t.TempDir()
		content := "quotas:\n  max_attachment_bytes: -1\n"
		if err := os.WriteFile(filepath.Join(dir, ServerConfigFile), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadServerConfig(dir); err == nil {
			t.Error("expected error")
		}
	})
}
