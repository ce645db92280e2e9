// Manages server settings stored in server_config.yaml.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfigFile is the settings file name inside the data directory.
const ServerConfigFile = "server_config.yaml"

// ServerConfig stores server-wide limits.
// Loaded from server_config.yaml, created with defaults if missing.
type ServerConfig struct {
	Quotas     Quotas     `yaml:"quotas"`
	RateLimits RateLimits `yaml:"rate_limits"`
}

// Quotas bounds request and attachment sizes.
type Quotas struct {
	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	// 0 means unlimited.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes"`

	// MaxAttachmentBytes limits one decoded attachment. Larger attachments
	// are not stored and their field gets the error marker.
	// 0 means unlimited.
	MaxAttachmentBytes int64 `yaml:"max_attachment_bytes"`
}

// Validate checks that quota values are non-negative.
func (q *Quotas) Validate() error {
	if q.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	if q.MaxAttachmentBytes < 0 {
		return errors.New("max_attachment_bytes must be non-negative")
	}
	return nil
}

// RateLimits defines rate limiting configuration (requests per minute per
// client IP).
type RateLimits struct {
	// WriteRatePerMin limits write operations (POST).
	// 0 means unlimited.
	WriteRatePerMin int `yaml:"write_rate_per_min"`

	// ReadRatePerMin limits read operations.
	// 0 means unlimited.
	ReadRatePerMin int `yaml:"read_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultServerConfig returns the settings written on first start.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Quotas: Quotas{
			MaxRequestBodyBytes: 32 * 1024 * 1024, // 32 MiB
			MaxAttachmentBytes:  16 * 1024 * 1024, // 16 MiB
		},
		RateLimits: RateLimits{
			WriteRatePerMin: 600,
			ReadRatePerMin:  6000,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// LoadServerConfig loads dataDir/server_config.yaml, creating it with
// defaults if it doesn't exist. Keys absent from the file keep their default.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, ServerConfigFile)
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", ServerConfigFile, err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ServerConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ServerConfigFile, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.yaml.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, ServerConfigFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", ServerConfigFile, err)
	}
	return nil
}
