package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all forgeone configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Insights InsightsConfig `yaml:"insights"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	URL  string `yaml:"url"` // used by `capture` to reach a running server
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// InsightsConfig tunes the derived views. Zero values fall back to defaults.
type InsightsConfig struct {
	HealthWindowDays int `yaml:"health_window_days"`
	SearchLimit      int `yaml:"search_limit"`
	RecentActivity   int `yaml:"recent_activity"`
	OverviewGoals    int `yaml:"overview_goals"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Insights: InsightsConfig{
			HealthWindowDays: 7,
			SearchLimit:      10,
			RecentActivity:   10,
			OverviewGoals:    5,
		},
	}
}

// DefaultPath returns ~/.forgeone/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".forgeone", "config.yaml"), nil
}

// Load reads a YAML config file on top of Default(). A missing file is not
// an error. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.fillZero()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FORGEONE_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("FORGEONE_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("FORGEONE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// fillZero restores defaults for numeric fields a config file set to zero.
func (c *Config) fillZero() {
	d := Default()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Insights.HealthWindowDays <= 0 {
		c.Insights.HealthWindowDays = d.Insights.HealthWindowDays
	}
	if c.Insights.SearchLimit <= 0 {
		c.Insights.SearchLimit = d.Insights.SearchLimit
	}
	if c.Insights.RecentActivity <= 0 {
		c.Insights.RecentActivity = d.Insights.RecentActivity
	}
	if c.Insights.OverviewGoals <= 0 {
		c.Insights.OverviewGoals = d.Insights.OverviewGoals
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ServerURL returns the base URL clients should use to reach the server.
func (c *Config) ServerURL() string {
	if c.Server.URL != "" {
		return c.Server.URL
	}
	return fmt.Sprintf("http://%s", c.ListenAddr())
}
