// Package config loads the vendazap YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Token guards the HTTP API. Empty disables auth (local dev).
	Token string `yaml:"token"`
}

type DataConfig struct {
	// Dir holds sqlite databases and per-tenant WhatsApp credentials.
	Dir string `yaml:"dir"`
}

type WhatsAppConfig struct {
	// ConnectTimeoutSeconds bounds one bring-up attempt.
	ConnectTimeoutSeconds int `yaml:"connectTimeoutSeconds"`
	// SendsPerMinute paces outbound messages per tenant.
	SendsPerMinute int `yaml:"sendsPerMinute"`
}

func (w WhatsAppConfig) ConnectTimeout() time.Duration {
	return time.Duration(w.ConnectTimeoutSeconds) * time.Second
}

// Load reads the YAML config at path, applying defaults for anything
// unset. A missing file yields pure defaults rather than an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = "127.0.0.1:8330"
	}
	if cfg.Data.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Data.Dir = filepath.Join(home, ".vendazap")
	}
	if cfg.WhatsApp.ConnectTimeoutSeconds <= 0 {
		cfg.WhatsApp.ConnectTimeoutSeconds = 60
	}
	if cfg.WhatsApp.SendsPerMinute <= 0 {
		cfg.WhatsApp.SendsPerMinute = 20
	}
}

// ResolvePath returns the config file location: $VENDAZAP_CONFIG if
// set, otherwise ~/.vendazap/config.yaml.
func ResolvePath() string {
	if p := os.Getenv("VENDAZAP_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".vendazap", "config.yaml")
}
