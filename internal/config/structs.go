// Package config defines the service configuration tree and its loader.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	LogLevel       string        `mapstructure:"log_level"`
	Verbose        bool          `mapstructure:"verbose"`
	DefaultBackend string        `mapstructure:"default_backend"`
	Cache          CacheConfig   `mapstructure:"cache"`
	Backends       BackendConfig `mapstructure:"backends"`
	Server         ServerConfig  `mapstructure:"server"`
}

// CacheConfig configures the detection result cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Dir enables the durable filesystem tier when non-empty.
	Dir        string `mapstructure:"dir"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// TTL returns the configured time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// BackendConfig groups per-adapter settings.
type BackendConfig struct {
	Local     LocalConfig     `mapstructure:"local"`
	Classical ClassicalConfig `mapstructure:"classical"`
	CloudA    CloudConfig     `mapstructure:"cloud_a"`
	CloudB    CloudConfig     `mapstructure:"cloud_b"`
}

// LocalConfig configures the local model backend.
type LocalConfig struct {
	Interpreter    string  `mapstructure:"interpreter"`
	Script         string  `mapstructure:"script"`
	Model          string  `mapstructure:"model"`
	Confidence     float64 `mapstructure:"confidence"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// ClassicalConfig configures the cascade face detector backend.
type ClassicalConfig struct {
	Interpreter    string  `mapstructure:"interpreter"`
	Script         string  `mapstructure:"script"`
	ScaleFactor    float64 `mapstructure:"scale_factor"`
	MinNeighbors   int     `mapstructure:"min_neighbors"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// CloudConfig configures one cloud vision backend. A backend with no API
// key is simply not registered.
type CloudConfig struct {
	Endpoint       string  `mapstructure:"endpoint"`
	APIKey         string  `mapstructure:"api_key"`
	MinConfidence  float64 `mapstructure:"min_confidence"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	CORSOrigin      string `mapstructure:"cors_origin"`
	MaxUploadMB     int64  `mapstructure:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl_seconds must not be negative")
	}
	if c.Backends.Classical.ScaleFactor != 0 && c.Backends.Classical.ScaleFactor <= 1.0 {
		return fmt.Errorf("classical scale_factor must be greater than 1.0")
	}
	if c.Backends.Local.Confidence < 0 || c.Backends.Local.Confidence > 1 {
		return fmt.Errorf("local confidence must be between 0.0 and 1.0")
	}
	return nil
}
