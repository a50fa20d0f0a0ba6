// Package config manages server configuration stored in server_config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the name of the configuration file in the data directory.
const FileName = "server_config.json"

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `json:"rate_limits"`

	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	// 0 means unlimited.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`

	// Git configures the history of the data file.
	Git GitConfig `json:"git"`
}

// RateLimits defines rate limiting configuration for mutating requests.
type RateLimits struct {
	// WriteRatePerMin limits write operations (POST/PUT/PATCH/DELETE) per
	// client IP. 0 means unlimited.
	WriteRatePerMin int `json:"write_rate_per_min"`

	// WriteBurst is the number of writes allowed in a burst.
	WriteBurst int `json:"write_burst"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.WriteBurst < 0 {
		return errors.New("write_burst must be non-negative")
	}
	if r.WriteRatePerMin > 0 && r.WriteBurst == 0 {
		return errors.New("write_burst must be positive when write_rate_per_min is set")
	}
	return nil
}

// GitConfig is the identity used for history commits.
type GitConfig struct {
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// Validate checks that the author is complete.
func (g *GitConfig) Validate() error {
	if g.AuthorName == "" {
		return errors.New("author_name is required")
	}
	if g.AuthorEmail == "" {
		return errors.New("author_email is required")
	}
	return nil
}

// Default returns the default configuration.
func Default() ServerConfig {
	return ServerConfig{
		RateLimits: RateLimits{
			WriteRatePerMin: 60, // 60 req/min for writes
			WriteBurst:      10,
		},
		MaxRequestBodyBytes: 1024 * 1024, // 1 MiB
		Git: GitConfig{
			AuthorName:  "bibliodb",
			AuthorEmail: "bibliodb@localhost",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	if c.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	if err := c.Git.Validate(); err != nil {
		return fmt.Errorf("git: %w", err)
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, FileName)
	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}
