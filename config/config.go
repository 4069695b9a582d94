// Package config loads application settings from .env, config.yaml and the environment.
// File: config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Meet     MeetConfig     `mapstructure:"meet"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ApplicationURL  string        `mapstructure:"application_url"`
	SessionSecret   string        `mapstructure:"session_secret"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the store. Driver is "postgres" or "memory".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// MeetConfig tunes the live meet: timer length, how often the countdown is
// persisted and how often observers are resynchronised.
type MeetConfig struct {
	TimerSeconds      int           `mapstructure:"timer_seconds"`
	PersistEveryTicks int           `mapstructure:"persist_every_ticks"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	ResyncInterval    time.Duration `mapstructure:"resync_interval"`
}

// AuthConfig holds the operator credentials. PasswordHash is a bcrypt hash.
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type MetricsConfig struct {
	CloudWatchEnabled bool   `mapstructure:"cloudwatch_enabled"`
	Namespace         string `mapstructure:"namespace"`
	Region            string `mapstructure:"region"`
}

// ArchiveConfig points at the S3-compatible bucket receiving final standings.
// An empty BucketName disables archival.
type ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SegmentName string `mapstructure:"segment_name"`
}

// LoadConfig reads configuration from path/config.yaml, a .env file and
// environment variables (server.address -> SERVER_ADDRESS).
func LoadConfig(path string) (Config, error) {
	var cfg Config

	// .env is optional; real environment variables take precedence over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.application_url", "http://localhost:8080")
	v.SetDefault("server.session_secret", "change-me")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost port=5432 user=postgres dbname=meet password=postgres sslmode=disable")

	v.SetDefault("meet.timer_seconds", 60)
	v.SetDefault("meet.persist_every_ticks", 5)
	v.SetDefault("meet.tick_interval", "1s")
	v.SetDefault("meet.resync_interval", "5s")

	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("metrics.cloudwatch_enabled", false)
	v.SetDefault("metrics.namespace", "MeetControl")
	v.SetDefault("metrics.region", "ap-southeast-2")

	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.region", "ap-southeast-2")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.bucket_name", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.segment_name", "go-meet-control")
}

// Validate rejects settings the meet cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Meet.TimerSeconds <= 0 {
		return fmt.Errorf("meet.timer_seconds must be positive, got %d", c.Meet.TimerSeconds)
	}
	if c.Meet.PersistEveryTicks <= 0 {
		return fmt.Errorf("meet.persist_every_ticks must be positive, got %d", c.Meet.PersistEveryTicks)
	}
	if c.Meet.TickInterval <= 0 {
		return fmt.Errorf("meet.tick_interval must be positive, got %s", c.Meet.TickInterval)
	}
	if c.Meet.ResyncInterval <= 0 {
		return fmt.Errorf("meet.resync_interval must be positive, got %s", c.Meet.ResyncInterval)
	}
	return nil
}

// ArchiveEnabled reports whether final standings should be uploaded.
func (c Config) ArchiveEnabled() bool {
	return c.Archive.BucketName != ""
}
