package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Import    ImportConfig    `yaml:"import"`
	Page      PageConfig      `yaml:"page"`
	Selection SelectionConfig `yaml:"selection"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ImportConfig configures the bulk loader.
type ImportConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// PageConfig configures display pagination.
type PageConfig struct {
	Size int `yaml:"size"`
}

// SelectionConfig configures select-all traversals.
type SelectionConfig struct {
	Cap int `yaml:"cap"`
}

// SearchConfig configures the debounced search wrapper.
type SearchConfig struct {
	Debounce string `yaml:"debounce"`
}

// ParseDebounce returns the search debounce as time.Duration.
func (s SearchConfig) ParseDebounce() time.Duration {
	d, err := time.ParseDuration(s.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ServerConfig configures the local HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database:  DatabaseConfig{Path: "./deletex.db"},
		Import:    ImportConfig{BatchSize: 1000},
		Page:      PageConfig{Size: 20},
		Selection: SelectionConfig{Cap: 500},
		Search:    SearchConfig{Debounce: "500ms"},
		Server:    ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DELETEX_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DELETEX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DELETEX_SELECTION_CAP"); v != "" {
		if cap, err := strconv.Atoi(v); err == nil {
			cfg.Selection.Cap = cap
		}
	}
}
