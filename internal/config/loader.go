package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "lookout"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "LOOKOUT"
)

// Loader handles loading configuration from files, environment variables,
// and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader. It uses the global viper
// instance so cobra flag bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// GetViper exposes the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// Load reads configuration from the search paths, environment, and
// defaults, then validates it. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// addConfigPaths registers the config file search locations.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "lookout"))
	}

	l.v.AddConfigPath("/etc/lookout")
}

// setupEnvironmentVariables enables LOOKOUT_* overrides, with dots mapped
// to underscores (e.g. LOOKOUT_SERVER_PORT).
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// setDefaults registers every configuration default.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log_level", "info")
	l.v.SetDefault("verbose", false)
	l.v.SetDefault("default_backend", "yolo")

	l.v.SetDefault("cache.enabled", true)
	l.v.SetDefault("cache.dir", "")
	l.v.SetDefault("cache.ttl_seconds", 3600)

	l.v.SetDefault("backends.local.interpreter", "python3")
	l.v.SetDefault("backends.local.script", "scripts/detect_yolo.py")
	l.v.SetDefault("backends.local.model", "yolov8n.pt")
	l.v.SetDefault("backends.local.confidence", 0.25)
	l.v.SetDefault("backends.local.timeout_seconds", 30)

	l.v.SetDefault("backends.classical.interpreter", "python3")
	l.v.SetDefault("backends.classical.script", "scripts/detect_faces.py")
	l.v.SetDefault("backends.classical.scale_factor", 1.1)
	l.v.SetDefault("backends.classical.min_neighbors", 5)
	l.v.SetDefault("backends.classical.timeout_seconds", 30)

	l.v.SetDefault("backends.cloud_a.endpoint", "")
	l.v.SetDefault("backends.cloud_a.api_key", "")
	l.v.SetDefault("backends.cloud_a.min_confidence", 0.25)
	l.v.SetDefault("backends.cloud_a.timeout_seconds", 15)

	l.v.SetDefault("backends.cloud_b.endpoint", "")
	l.v.SetDefault("backends.cloud_b.api_key", "")
	l.v.SetDefault("backends.cloud_b.min_confidence", 0.25)
	l.v.SetDefault("backends.cloud_b.timeout_seconds", 15)

	l.v.SetDefault("server.host", "localhost")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.cors_origin", "*")
	l.v.SetDefault("server.max_upload_mb", 20)
	l.v.SetDefault("server.timeout_sec", 60)
	l.v.SetDefault("server.shutdown_timeout", 10)
}
