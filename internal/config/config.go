package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "boardsync.yml"

// Store backends
const (
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// BoardsyncConfig represents the top-level boardsync.yml configuration
type BoardsyncConfig struct {
	Version   string         `yaml:"version"`
	Workspace string         `yaml:"workspace"`
	Store     StoreConfig    `yaml:"store"`
	Identity  IdentityConfig `yaml:"identity"`
	Sync      SyncConfig     `yaml:"sync"`
	Log       LogConfig      `yaml:"log"`
}

// StoreConfig selects the persistence gateway and how to reach it
type StoreConfig struct {
	Backend       string `yaml:"backend"` // "redis" or "mongo"
	RedisURL      string `yaml:"redis_url,omitempty"`
	MongoURI      string `yaml:"mongo_uri,omitempty"`
	MongoDatabase string `yaml:"mongo_database,omitempty"`
}

// IdentityConfig locates the local user database
type IdentityConfig struct {
	DBPath string `yaml:"db_path"`
	UserID string `yaml:"user_id,omitempty"` // Logged in on startup when set
}

// SyncConfig tunes the synchronization orchestrator
type SyncConfig struct {
	ReloadListAfterSave *bool `yaml:"reload_list_after_save,omitempty"` // Default: true
}

// LogConfig sets the logrus level
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Default returns the configuration used when no boardsync.yml exists.
func Default() *BoardsyncConfig {
	c := &BoardsyncConfig{Version: "1.0"}
	c.applyDefaults()
	return c
}

func (c *BoardsyncConfig) applyDefaults() {
	if c.Workspace == "" {
		c.Workspace = "default"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendRedis
	}
	if c.Store.Backend == BackendRedis && c.Store.RedisURL == "" {
		c.Store.RedisURL = "redis://localhost:6379/0"
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoDatabase == "" {
		c.Store.MongoDatabase = "boardsync"
	}
	if c.Identity.DBPath == "" {
		c.Identity.DBPath = "~/.config/boardsync/identity.db"
	}
	if c.Sync.ReloadListAfterSave == nil {
		reload := true
		c.Sync.ReloadListAfterSave = &reload
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate performs strict validation on the configuration
func (c *BoardsyncConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.Workspace) == "" {
		return fmt.Errorf("workspace is required")
	}

	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store.mongo_uri is required for the mongo backend")
		}
		if c.Store.MongoDatabase == "" {
			return fmt.Errorf("store.mongo_database is required for the mongo backend")
		}
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'redis' or 'mongo')", c.Store.Backend)
	}

	if c.Identity.DBPath == "" {
		return fmt.Errorf("identity.db_path is required")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}

	return nil
}

// ReloadListAfterSave reports the effective sync.reload_list_after_save value.
func (c *BoardsyncConfig) ReloadListAfterSave() bool {
	return c.Sync.ReloadListAfterSave == nil || *c.Sync.ReloadListAfterSave
}

// LogLevel returns the parsed log level, falling back to info.
func (c *BoardsyncConfig) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// IdentityPath returns identity.db_path with a leading ~ expanded.
func (c *BoardsyncConfig) IdentityPath() (string, error) {
	return expandHome(c.Identity.DBPath)
}

// Load reads and validates boardsync.yml from the specified path
func Load(path string) (*BoardsyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config BoardsyncConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path, or returns Default() when the file does not exist.
func LoadOrDefault(path string) (*BoardsyncConfig, error) {
	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Debug("no config file, using defaults")
		return Default(), nil
	}
	return config, err
}

// Write marshals the configuration to path.
func Write(path string, c *BoardsyncConfig) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
