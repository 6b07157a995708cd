// Package config loads refinery.yaml and builds the logger the rest of the
// engine shares.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all refinery configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Patterns PatternsConfig `yaml:"patterns"`
	Solve    SolveConfig    `yaml:"solve"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// DatabaseConfig locates the theory database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// PatternsConfig seeds the default conclusion patterns and optionally keeps
// them in sync with a pattern file (one surface-syntax pattern per line).
type PatternsConfig struct {
	Defaults []string `yaml:"defaults"`
	File     string   `yaml:"file"`
	Watch    bool     `yaml:"watch"`
}

// SolveConfig bounds the goal solver.
type SolveConfig struct {
	Depth int `yaml:"depth"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
		Database: DatabaseConfig{
			Path: "refinery.db",
		},
		Patterns: PatternsConfig{
			Defaults: []string{"?f : _", "?f == _"},
		},
		Solve: SolveConfig{
			Depth: 32,
		},
	}
}

// Load reads configuration from a YAML file, starting from defaults. A
// missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("REFINERY_DB"); path != "" {
		c.Database.Path = path
	}
	if level := os.Getenv("REFINERY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level %q: %w", c.Logging.Level, err)
	}
	if c.Solve.Depth <= 0 {
		return fmt.Errorf("solve depth must be positive, got %d", c.Solve.Depth)
	}
	return nil
}

// Logger builds the shared zap logger from the logging section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level %q: %w", c.Logging.Level, err)
	}
	var zcfg zap.Config
	if c.Logging.JSON {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
