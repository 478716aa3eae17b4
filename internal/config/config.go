// Package config loads the YAML application configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Payments PaymentsConfig `yaml:"payments"`
}

// DatabaseConfig selects the backing store.
type DatabaseConfig struct {
	// DSN is either a postgres URL/keyword DSN or a sqlite file path.
	DSN string `yaml:"dsn"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig holds logging settings. When File is empty logs go to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// PaymentsConfig holds the card fee schedule and rehearsal pricing.
type PaymentsConfig struct {
	CardRate       float64 `yaml:"card_rate"`
	CardFixedCents int64   `yaml:"card_fixed_cents"`
	// BlockPriceCents is the cash price of one 15-minute rehearsal block
	// when a member pays money instead of free-hour credits.
	BlockPriceCents int64 `yaml:"block_price_cents"`
}

// ResolveConfigPath picks the config file path: the explicit argument, then
// the CORVMC_CONFIG environment variable, then ./config.yaml.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("CORVMC_CONFIG")); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads and validates the configuration at path. A missing file yields
// the defaults so a sqlite dev setup needs no config at all.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	if errDecode := yaml.Unmarshal(data, cfg); errDecode != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errDecode)
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = defaults().Database.DSN
	}
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = defaults().Server.Listen
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{DSN: "corvmc.db"},
		Server:   ServerConfig{Listen: ":8317"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Payments: PaymentsConfig{CardRate: 0.029, CardFixedCents: 30, BlockPriceCents: 250},
	}
}
