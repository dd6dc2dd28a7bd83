package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all WasteLess configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig defines HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	CORSOrigin   string `mapstructure:"cors_origin"`
}

// StorageConfig defines database settings. Path is used by the sqlite driver, DSN
// by postgres.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// Target returns the path or connection string for the configured driver.
func (s StorageConfig) Target() string {
	if s.Driver == "postgres" {
		return s.DSN
	}
	return s.Path
}

// AlertsConfig defines alert reconciliation settings.
type AlertsConfig struct {
	WindowDays int            `mapstructure:"window_days"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
}

// ScheduleConfig defines the periodic reconciliation trigger.
type ScheduleConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Interval   string `mapstructure:"interval"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// AuthConfig defines API authentication settings.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  string `mapstructure:"token_ttl"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".wasteless"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("server.listen", ":3000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.cors_origin", "http://localhost:3001")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".wasteless", "wasteless.db"))
	v.SetDefault("storage.dsn", "")
	v.SetDefault("alerts.window_days", 3)
	v.SetDefault("alerts.schedule.enabled", false)
	v.SetDefault("alerts.schedule.interval", "24h")
	v.SetDefault("alerts.schedule.run_on_start", false)
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "8h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// Environment variables
	v.SetEnvPrefix("WASTELESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that cannot be expressed as defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.Alerts.WindowDays < 0 {
		errs = append(errs, fmt.Errorf("alerts.window_days must not be negative, got %d", c.Alerts.WindowDays))
	}
	if _, err := c.ScheduleInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TokenTTL(); err != nil {
		errs = append(errs, err)
	}
	for key, val := range map[string]string{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required when auth is enabled"))
	}

	return errors.Join(errs...)
}

// ScheduleInterval parses alerts.schedule.interval.
func (c *Config) ScheduleInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Alerts.Schedule.Interval)
	if err != nil {
		return 0, fmt.Errorf("alerts.schedule.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("alerts.schedule.interval must be positive, got %s", d)
	}
	return d, nil
}

// TokenTTL parses auth.token_ttl.
func (c *Config) TokenTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("auth.token_ttl: %w", err)
	}
	return d, nil
}
