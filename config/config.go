// Package config loads server configuration from an optional YAML file.
//
// Flags on the server binary override anything set here; a missing file
// just yields the defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Server holds HTTP listener settings.
type Server struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
}

// Database holds storage settings.
type Database struct {
	Path string `yaml:"path"`
}

// CORS holds cross-origin settings for the frontend.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the root of the YAML file.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	CORS     CORS     `yaml:"cors"`
	LogLevel string   `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:            8080,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
		},
		Database: Database{Path: "findback.db"},
		CORS: CORS{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		LogLevel: "info",
	}
}

// Load reads and parses a config file, applying defaults for anything
// unset. A missing file is not an error; it returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Re-apply defaults for fields the file left zero.
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ReadTimeoutSec == 0 {
		cfg.Server.ReadTimeoutSec = def.Server.ReadTimeoutSec
	}
	if cfg.Server.WriteTimeoutSec == 0 {
		cfg.Server.WriteTimeoutSec = def.Server.WriteTimeoutSec
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = def.CORS.AllowedOrigins
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	return cfg, nil
}
