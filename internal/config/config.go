// internal/config/config.go
//
// This package handles configuration and the .qatool directory structure.
// Every workspace that runs QAtool gets a .qatool/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the name of the directory we create in each workspace
	Dir = ".qatool"

	defaultDatabase   = "qatool.db"
	defaultServerHost = "127.0.0.1"
	defaultServerPort = 8787
	defaultLogLevel   = "info"
)

const defaultConfigYAML = `# qatool configuration
version: 1

# Opaque user key used to store personalized comments and report history.
# QATOOL_USER overrides it.
user: ""

# SQLite database, relative to this workspace.
database: .qatool/state/qatool.db

# Optional YAML/TOML file imported into an empty catalog on startup.
catalog_seed: ""

server:
  enabled: true
  host: 127.0.0.1
  port: 8787

logging:
  level: info
`

// ServerConfig captures the HTTP API listener.
type ServerConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// LoggingConfig captures the structured log settings.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// FileConfig models .qatool/config.yaml.
type FileConfig struct {
	Version     int           `yaml:"version"`
	User        string        `yaml:"user"`
	Database    string        `yaml:"database"`
	CatalogSeed string        `yaml:"catalog_seed"`
	Server      ServerConfig  `yaml:"server"`
	Logging     LoggingConfig `yaml:"logging"`
}

// Config holds the runtime configuration for QAtool.
type Config struct {
	// WorkspaceDir is the directory qatool was started from
	WorkspaceDir string

	// StateDir is WorkspaceDir/.qatool
	StateDir string

	File FileConfig
}

// InitDir creates the .qatool directory structure in the given workspace.
//
// Structure created:
// .qatool/
// ├── config.yaml
// ├── logs/    <- qatool.log (structured) and journal.log (human)
// ├── state/   <- SQLite database by default
// └── seeds/   <- catalog seed files
func InitDir(workspaceDir string) error {
	root := filepath.Join(workspaceDir, Dir)
	for _, dir := range []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
		filepath.Join(root, "seeds"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureConfigFile(filepath.Join(root, "config.yaml"))
}

// Load reads .qatool/config.yaml (defaults when missing) and applies
// environment overrides.
func Load(workspaceDir string) (*Config, error) {
	cfg := &Config{
		WorkspaceDir: workspaceDir,
		StateDir:     filepath.Join(workspaceDir, Dir),
		File:         defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.File.applyEnvOverrides()
	cfg.File.normalize(workspaceDir)
	if err := cfg.File.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Path returns the on-disk location of the config file.
func (c *Config) Path() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// JournalPath returns the human-readable session journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// DatabasePath returns the absolute SQLite path.
func (c *Config) DatabasePath() string {
	return c.File.Database
}

// User returns the configured identity key, possibly empty.
func (c *Config) User() string {
	return c.File.User
}

// ServerEnabled reports whether `qatool serve` may bind.
func (c *Config) ServerEnabled() bool {
	return c.File.Server.Enabled == nil || *c.File.Server.Enabled
}

// ServerAddress returns host:port for the HTTP API.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.File.Server.Host, strconv.Itoa(c.File.Server.Port))
}

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string {
	return c.File.Logging.Level
}

// SetUser updates the identity key and persists it back to config.yaml.
func (c *Config) SetUser(user string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return fmt.Errorf("config: user is required")
	}
	c.File.User = user
	return c.save()
}

func (c *Config) loadFile() error {
	path := c.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.File = parsed
	return nil
}

func (c *Config) save() error {
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure dir: %w", err)
	}
	data, err := yaml.Marshal(c.File)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(c.Path(), data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.Path(), err)
	}
	return nil
}

func defaultFileConfig() FileConfig {
	fc := FileConfig{}
	fc.applyDefaults()
	return fc
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if strings.TrimSpace(fc.Database) == "" {
		fc.Database = filepath.Join(Dir, "state", defaultDatabase)
	}
	if fc.Server.Host == "" {
		fc.Server.Host = defaultServerHost
	}
	if fc.Server.Port == 0 {
		fc.Server.Port = defaultServerPort
	}
	if fc.Logging.Level == "" {
		fc.Logging.Level = defaultLogLevel
	}
}

func (fc *FileConfig) applyEnvOverrides() {
	if user := strings.TrimSpace(os.Getenv("QATOOL_USER")); user != "" {
		fc.User = user
	}
	if db := strings.TrimSpace(os.Getenv("QATOOL_DB")); db != "" {
		fc.Database = db
	}
	if host := strings.TrimSpace(os.Getenv("QATOOL_SERVER_HOST")); host != "" {
		fc.Server.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("QATOOL_SERVER_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && isValidPort(parsed) {
			fc.Server.Port = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("QATOOL_SERVER_ENABLED")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			fc.Server.Enabled = &enabled
		}
	}
	if level := strings.TrimSpace(os.Getenv("QATOOL_LOG_LEVEL")); level != "" {
		fc.Logging.Level = level
	}
}

func (fc *FileConfig) normalize(base string) {
	fc.User = strings.TrimSpace(fc.User)
	fc.Database = resolvePath(base, fc.Database)
	fc.CatalogSeed = resolvePath(base, fc.CatalogSeed)
	fc.Server.Host = strings.TrimSpace(fc.Server.Host)
	if fc.Server.Host == "" {
		fc.Server.Host = defaultServerHost
	}
	fc.Logging.Level = strings.ToLower(strings.TrimSpace(fc.Logging.Level))
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if fc.Database == "" {
		return fmt.Errorf("database is required")
	}
	if !isValidPort(fc.Server.Port) {
		return fmt.Errorf("server.port %d out of range", fc.Server.Port)
	}
	switch fc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if trimmed == ":memory:" || filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
