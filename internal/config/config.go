// Package config loads application configuration from a YAML file and
// CORRAL_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds herd server connection settings
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds local cache settings
type CacheConfig struct {
	Dir string        `mapstructure:"dir"`
	TTL time.Duration `mapstructure:"ttl"`
}

// NotificationsConfig holds background refresh settings
type NotificationsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
			TTL: 5 * time.Minute,
		},
		Notifications: NotificationsConfig{
			RefreshInterval: time.Minute,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CORRAL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "corral")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "corral")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "corral", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "corral", "cache")
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "corral", "corral.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "corral", "corral.log")
	}
}
