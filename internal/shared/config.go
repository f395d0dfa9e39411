package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Daemon   DaemonConfig   `toml:"daemon"`
	Sync     SyncConfig     `toml:"sync"`
	Database DatabaseConfig `toml:"database"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Yandex   YandexConfig   `toml:"yandex"`
}

// DaemonConfig contains settings for the daemon process itself.
type DaemonConfig struct {
	LogLevel           string `toml:"log_level"`
	GracePeriodSeconds int    `toml:"grace_period_seconds"`
}

// SyncConfig contains settings that control reconciliation behaviour.
type SyncConfig struct {
	IntervalMinutes    int    `toml:"interval_minutes"`
	Mode               string `toml:"mode"`
	Direction          string `toml:"direction"`
	PropagateDeletions bool   `toml:"propagate_deletions"`
}

// DatabaseConfig contains SQLite connection settings.
// An empty Path falls back to [DatabasePath].
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	RedirectURI  string `toml:"redirect_uri"`
}

// YandexConfig contains Yandex Music API credentials.
type YandexConfig struct {
	Token  string `toml:"token"`
	UserID string `toml:"user_id"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadOrDefault loads the config at path, falling back to defaults when the file is absent.
func LoadOrDefault(path string) *Config {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig()
	}
	config, err := LoadConfig(path)
	if err != nil {
		return DefaultConfig()
	}
	return config
}

// SaveConfig serializes config to TOML at the specified path with owner-only permissions.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsSpotifyConfigured reports whether the Spotify credentials are fully set.
func (c *Config) IsSpotifyConfigured() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != "" && c.Spotify.RefreshToken != ""
}

// IsYandexConfigured reports whether the Yandex Music token is set.
func (c *Config) IsYandexConfigured() bool {
	return c.Yandex.Token != ""
}

// DatabaseFile resolves the configured database path, defaulting to ~/.spondex/spondex.db.
func (c *Config) DatabaseFile() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return DatabasePath()
}
