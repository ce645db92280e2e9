// Package config resolves where vdb2 keeps its data and how it listens.
//
// Values come, lowest precedence first, from built-in defaults, the
// <data-dir>/.env file, the process environment and finally command line
// flags, which the caller applies on top of Load's result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultStorageRoot is the persistent disk mount used in hosted mode.
const DefaultStorageRoot = "/opt/render/project/vdb2-storage"

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config is the resolved process configuration.
type Config struct {
	// Hosted is set when running on the hosting platform (RENDER is set).
	Hosted bool
	// Host is the bind host: all interfaces when hosted, loopback otherwise.
	Host string
	Port int
	// DataDir holds the JSON documents, server_config.yaml and .env.
	DataDir string
	// FilesDir is the attachment root; one bucket per database.
	FilesDir string
	// StaticDir holds the landing page and other static assets.
	StaticDir string
	// Store selects the document backend, StoreJSON or StoreSQLite.
	Store    string
	LogLevel string
	// GeoDB is an optional MaxMind MMDB file for request geolocation.
	GeoDB string
	// History enables git history of the data directory.
	History bool
}

// Lookup returns an environment variable and whether it is set.
type Lookup func(key string) (string, bool)

// Default returns the defaults for the given mode.
func Default(hosted bool, storageRoot string) *Config {
	c := &Config{
		Hosted:    hosted,
		Host:      "localhost",
		Port:      8080,
		DataDir:   "data",
		FilesDir:  "vdb_files",
		StaticDir: "static",
		Store:     StoreJSON,
		LogLevel:  "info",
	}
	if hosted {
		if storageRoot == "" {
			storageRoot = DefaultStorageRoot
		}
		c.Host = "0.0.0.0"
		c.DataDir = filepath.Join(storageRoot, "data")
		c.FilesDir = filepath.Join(storageRoot, "vdb_files")
	}
	return c
}

// Load resolves the configuration from lookup, typically os.LookupEnv, and
// the .env file of the resulting data directory.
//
// RENDER and VDB2_STORAGE_ROOT are only read from lookup since they decide
// where the .env file lives.
func Load(lookup Lookup) (*Config, error) {
	render, _ := lookup("RENDER")
	root, _ := lookup("VDB2_STORAGE_ROOT")
	c := Default(render != "", root)

	dotenv, err := LoadDotEnv(c.DataDir)
	if err != nil {
		return nil, err
	}
	get := func(key string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return dotenv[key]
	}

	if v := get("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = p
	}
	if v := get("VDB2_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := get("VDB2_STORE"); v != "" {
		c.Store = v
	}
	if v := get("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := get("VDB2_GEO_DB"); v != "" {
		c.GeoDB = v
	}
	if v := get("VDB2_HISTORY"); v != "" {
		c.History = v == "1" || strings.EqualFold(v, "true")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1..65535", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}
	if c.FilesDir == "" {
		return errors.New("files directory is required")
	}
	if c.StaticDir == "" {
		return errors.New("static directory is required")
	}
	switch c.Store {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q, want %q or %q", c.Store, StoreJSON, StoreSQLite)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DatabasesFile is the name of the database list document.
const DatabasesFile = "virtualdatabases.json"

// EntriesFile is the name of the entry index document.
const EntriesFile = "entries.json"

// SQLitePath returns the database file used by StoreSQLite.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "vdb2.sqlite")
}

// ParseLevel converts a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// LoadDotEnv reads dataDir/.env. A missing file yields an empty map.
func LoadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	envContent, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from the data directory, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		val = strings.TrimSpace(val)

		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if len(val) < 2 || !strings.HasPrefix(val, "'") || !strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
			}
			val = val[1 : len(val)-1]
		} else if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}
