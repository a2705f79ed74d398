package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/waypoint/internal/store"
)

// Config holds the store settings the CLI wires up.
type Config struct {
	// Dir is the durable file area for the database file.
	Dir string `yaml:"dir"`

	// FileName is the database file name within Dir.
	FileName string `yaml:"file_name"`

	// Backend is auto, file, or volatile.
	Backend string `yaml:"backend"`

	// BackupFile is the key-value backup database path. Relative paths
	// resolve under Dir.
	BackupFile string `yaml:"backup_file"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	dir := ".waypoint"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".waypoint")
	}
	return Config{
		Dir:        dir,
		FileName:   store.DefaultFileName,
		Backend:    string(store.BackendAuto),
		BackupFile: "backup.db",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	switch store.Backend(cfg.Backend) {
	case store.BackendAuto, store.BackendFile, store.BackendVolatile:
	default:
		return Config{}, fmt.Errorf("invalid backend %q: must be auto, file, or volatile", cfg.Backend)
	}
	return cfg, nil
}

// backupPath resolves the backup database location.
func (c Config) backupPath() string {
	if filepath.IsAbs(c.BackupFile) {
		return c.BackupFile
	}
	return filepath.Join(c.Dir, c.BackupFile)
}
