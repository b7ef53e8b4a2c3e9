// Package config holds operator-level configuration for a veil
// installation: data directory, external provider credentials, log
// settings. Set via env vars (VEIL_*) or veil.config.yaml.
//
// Per-document detection settings (enabled categories, external source
// toggle) are a separate Settings value persisted through the storage
// collaborator; see settings.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the VEIL_ prefix
// (e.g. "api_key" → VEIL_API_KEY) and to a YAML field in veil.config.yaml.
const (
	KeyDataDir       = "data_dir"
	KeyProvider      = "provider"
	KeyAPIKey        = "api_key"
	KeyModel         = "model"
	KeyPatternFile   = "pattern_file"
	KeyRetentionDays = "retention_days"
)

// DefaultRetentionDays is how long saved entity maps are kept before the
// retention sweep purges them.
const DefaultRetentionDays = 30

// Config holds resolved operator-level configuration for a veil process.
type Config struct {
	DataDir       string // Base directory for all state (~/.veil)
	Provider      string // External source provider: "openai", "anthropic", or "" (disabled)
	APIKey        string // External source API key
	Model         string // External source model override
	PatternFile   string // Optional recognizer override YAML
	RetentionDays int    // TTL for saved entity maps
}

// StoreDBPath returns the full path to the veil SQLite database.
func (c *Config) StoreDBPath() string {
	return filepath.Join(c.DataDir, "veil.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

func init() {
	viper.SetEnvPrefix("VEIL")
	viper.AutomaticEnv()
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
}

// Load reads configuration from Viper (which merges env vars, config
// file, and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:       resolveDataDir(),
		Provider:      viper.GetString(KeyProvider),
		APIKey:        viper.GetString(KeyAPIKey),
		Model:         viper.GetString(KeyModel),
		PatternFile:   viper.GetString(KeyPatternFile),
		RetentionDays: viper.GetInt(KeyRetentionDays),
	}

	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("invalid configuration: retention_days must be positive")
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".veil"
	}
	return filepath.Join(home, ".veil")
}
