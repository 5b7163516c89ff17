package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/dploy/internal/core/appconfig"
	"github.com/artpar/dploy/internal/core/deployment"
)

// =============================================================================
// Settings Types
// =============================================================================

// Settings holds the tool's own configuration. Application configuration
// lives in dploy.toml and is loaded by LoadAppConfig.
type Settings struct {
	Log       LogConfig       `mapstructure:"log"`
	Docker    DockerConfig    `mapstructure:"docker"`
	DataDir   string          `mapstructure:"data_dir"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	SSH       SSHConfig       `mapstructure:"ssh"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DockerConfig holds Docker client configuration for local commands.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// WatchConfig tunes the watch-rebuild loop.
type WatchConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

// ReadinessConfig bounds the post-startup hooks.
type ReadinessConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SSHConfig holds the remote transport configuration.
type SSHConfig struct {
	KnownHosts            string `mapstructure:"known_hosts"`
	StrictHostKeyChecking bool   `mapstructure:"strict_host_key_checking"`
}

// =============================================================================
// Settings Loading
// =============================================================================

// LoadSettings loads settings from an optional file and DPLOY_* environment variables.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("docker.host", "")
	v.SetDefault("data_dir", deployment.DefaultDataDir)
	v.SetDefault("watch.poll_interval", "1s")
	v.SetDefault("watch.cooldown", "3s")
	v.SetDefault("readiness.timeout", "60s")
	v.SetDefault("ssh.known_hosts", "~/.ssh/known_hosts")
	v.SetDefault("ssh.strict_host_key_checking", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing settings file means defaults; anything else is an error.
			var parseErr viper.ConfigParseError
			switch {
			case errors.Is(err, fs.ErrNotExist):
			case errors.As(err, &parseErr):
				return nil, fmt.Errorf("failed to parse settings file: %w", err)
			default:
				return nil, fmt.Errorf("failed to read settings file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &s, nil
}

// =============================================================================
// App Config Loading
// =============================================================================

// LoadAppConfig reads and validates the application's dploy.toml.
func LoadAppConfig(path string) (appconfig.AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return appconfig.AppConfig{}, fmt.Errorf("config file %s not found, pass its location with --config: %w", path, err)
		}
		return appconfig.AppConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg appconfig.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appconfig.AppConfig{}, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return appconfig.AppConfig{}, err
	}
	return cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(s *Settings, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(s.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(s.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
