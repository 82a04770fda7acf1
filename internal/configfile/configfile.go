// Package configfile reads and writes the per-user settings file that
// points at the task database and export location.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const ConfigFileName = "config.json"

type Config struct {
	Database   string `json:"database"`
	ExportFile string `json:"export_file,omitempty"`

	// DefaultList overrides the list new tasks land in when no --list flag
	// is given. Empty means the built-in Inbox.
	DefaultList string `json:"default_list,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:   "tada.db",
		ExportFile: "tada-backup.json",
	}
}

// DataDir resolves the directory holding the config file and database.
// TADA_HOME wins when set; otherwise the platform config dir is used.
func DataDir() (string, error) {
	if dir := os.Getenv("TADA_HOME"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(base, "tada"), nil
}

func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// Load reads the config from dataDir. A missing file returns (nil, nil)
// so callers can fall back to DefaultConfig.
func Load(dataDir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(dataDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(dataDir), data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) DatabasePath(dataDir string) string {
	if c.Database == "" {
		return filepath.Join(dataDir, "tada.db")
	}
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(dataDir, c.Database)
}

func (c *Config) ExportPath(dataDir string) string {
	if c.ExportFile == "" {
		return filepath.Join(dataDir, "tada-backup.json")
	}
	if filepath.IsAbs(c.ExportFile) {
		return c.ExportFile
	}
	return filepath.Join(dataDir, c.ExportFile)
}
