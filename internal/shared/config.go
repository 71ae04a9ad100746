package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Daemon   DaemonConfig   `toml:"daemon"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Console  ConsoleConfig  `toml:"console"`
}

// DaemonConfig describes how to reach the sync daemon being monitored.
type DaemonConfig struct {
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	RetryDelayMS   int    `toml:"retry_delay_ms"`
}

// DatabaseConfig contains run-history database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP status bridge settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ConsoleConfig contains TUI settings.
type ConsoleConfig struct {
	RefreshMS int    `toml:"refresh_ms"`
	LogLines  int    `toml:"log_lines"`
	LogFile   string `toml:"log_file"`
}

// PollInterval returns the summary polling cadence, defaulting to 1s
// when unset and flooring at 10ms so a typo cannot hammer the daemon.
func (c DaemonConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return time.Second
	}
	if c.PollIntervalMS < 10 {
		return 10 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RetryDelay returns the reconnect backoff, defaulting to 2s.
func (c DaemonConfig) RetryDelay() time.Duration {
	if c.RetryDelayMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.RetryDelayMS) * time.Millisecond
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
