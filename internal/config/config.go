// Package config loads erpsim settings from the environment and rulebook
// overrides from YAML.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"erpsim/internal/blob"
	"erpsim/internal/core"
	infraS3 "erpsim/internal/infra/blob/s3"
)

// Metrics exporters understood by Config.Metrics.
const (
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

// Config is the process configuration.
type Config struct {
	EnterpriseName string `env:"ERPSIM_ENTERPRISE_NAME" envDefault:"Enterprise 1"`
	StorageDriver  string `env:"ERPSIM_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath     string `env:"ERPSIM_SQLITE_PATH" envDefault:"erpsim.db"`
	PostgresDSN    string `env:"ERPSIM_POSTGRES_DSN"`
	RulebookPath   string `env:"ERPSIM_RULEBOOK"`
	AutoSave       bool   `env:"ERPSIM_AUTOSAVE" envDefault:"true"`
	LogLevel       string `env:"ERPSIM_LOG_LEVEL" envDefault:"info"`
	Metrics        string `env:"ERPSIM_METRICS" envDefault:"expvar"`
	Blob           BlobConfig
}

// BlobConfig selects the save archive backend.
type BlobConfig struct {
	Driver            string `env:"ERPSIM_BLOB_DRIVER" envDefault:"fs"`
	FSRoot            string `env:"ERPSIM_BLOB_FS_ROOT" envDefault:"./blobdata"`
	S3Bucket          string `env:"ERPSIM_BLOB_S3_BUCKET"`
	S3Region          string `env:"ERPSIM_BLOB_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"ERPSIM_BLOB_S3_ENDPOINT"`
	S3PathStyle       bool   `env:"ERPSIM_BLOB_S3_PATH_STYLE"`
	S3AccessKeyID     string `env:"ERPSIM_BLOB_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"ERPSIM_BLOB_S3_SECRET_ACCESS_KEY"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch core.StorageDriver(c.StorageDriver) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("ERPSIM_BLOB_S3_BUCKET required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Metrics {
	case MetricsExpvar, MetricsPrometheus, MetricsNone:
	default:
		return fmt.Errorf("unknown metrics exporter %q", c.Metrics)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// SaveStore returns the save slot store settings.
func (c Config) SaveStore() core.SaveStoreConfig {
	return core.SaveStoreConfig{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// Archive returns the blob archive settings.
func (c Config) Archive() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: infraS3.Config{
			Bucket:          c.Blob.S3Bucket,
			Region:          c.Blob.S3Region,
			Endpoint:        c.Blob.S3Endpoint,
			PathStyle:       c.Blob.S3PathStyle,
			AccessKeyID:     c.Blob.S3AccessKeyID,
			SecretAccessKey: c.Blob.S3SecretAccessKey,
		},
	}
}
