package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the workspace-relative config file consulted by every command.
const FileName = ".cesm.yaml"

// StateDir holds the journal and log files inside a workspace.
const StateDir = ".cesm"

// Config holds all cesm configuration.
type Config struct {
	// Scanning and worker settings
	World WorldConfig `yaml:"world"`

	// Run journal
	Journal JournalConfig `yaml:"journal"`

	// Rust -> TypeScript generation
	Gentype GentypeConfig `yaml:"gentype"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Timeout bounds a single command invocation ("0" disables it).
	Timeout string `yaml:"timeout"`
}

// JournalConfig configures the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // relative paths resolve against the workspace
}

// GentypeConfig configures TypeScript emission.
type GentypeConfig struct {
	// Tag and Content name the discriminant and payload keys of enum unions
	// when the Rust source carries no serde override.
	Tag     string `yaml:"tag"`
	Content string `yaml:"content"`
	// ExportPrivate emits non-pub items with the export keyword as well.
	ExportPrivate bool `yaml:"export_private"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		World: DefaultWorldConfig(),
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(StateDir, "journal.db"),
		},
		Gentype: GentypeConfig{
			Tag:     "t",
			Content: "c",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Timeout: "5m",
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadWorkspace loads <workspace>/.cesm.yaml.
func LoadWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, FileName))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("CESM_WORKERS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			c.World.Workers = v
		}
	}
	if env := os.Getenv("CESM_JOURNAL"); env != "" {
		switch strings.ToLower(env) {
		case "0", "false", "off", "no":
			c.Journal.Enabled = false
		default:
			c.Journal.Enabled = true
		}
	}
	if level := os.Getenv("CESM_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if env := os.Getenv("CESM_DEBUG"); env != "" {
		if v, err := strconv.ParseBool(env); err == nil {
			c.Logging.DebugMode = v
		}
	}
}

// JournalPath returns the journal database path for a workspace.
func (c *Config) JournalPath(workspace string) string {
	if filepath.IsAbs(c.Journal.Path) {
		return c.Journal.Path
	}
	return filepath.Join(workspace, c.Journal.Path)
}

// GetTimeout returns the command timeout as a duration. Zero means no timeout.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.World.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.World.Workers)
	}
	if c.World.MaxFileBytes < 0 {
		return fmt.Errorf("invalid max_file_bytes: %d", c.World.MaxFileBytes)
	}
	if strings.TrimSpace(c.Gentype.Tag) == "" {
		return fmt.Errorf("gentype.tag must not be empty")
	}
	if c.Gentype.Tag == c.Gentype.Content {
		return fmt.Errorf("gentype.tag and gentype.content must differ (both %q)", c.Gentype.Tag)
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path must be set when the journal is enabled")
	}

	validLevel := false
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
