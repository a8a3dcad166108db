// Package config loads rtharvest settings from the environment, an optional
// .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config keys. Each key is also read from the environment variable of the same name.
const (
	KeyAPIBaseURL       = "API_BASE_URL"
	KeyDocumentBaseURL  = "RT_DOCUMENT_BASE_URL"
	KeyRequestDelay     = "DEFAULT_REQUEST_DELAY_SECONDS"
	KeyUserAgent        = "USER_AGENT"
	KeyRequestTimeout   = "REQUEST_TIMEOUT_SECONDS"
	KeyMaxRetries       = "MAX_RETRIES"
	KeyDatabaseDriver   = "DATABASE_DRIVER"
	KeyDatabaseURL      = "DATABASE_URL"
	KeyDatabaseDir      = "DATABASE_DIR"
	KeyDatabaseFilename = "DATABASE_FILENAME"
	KeyCheckpointEvery  = "CHECKPOINT_EVERY"
	KeyLogLevel         = "LOG_LEVEL"
	KeyLogDevelopment   = "LOG_DEVELOPMENT"
	KeyPort             = "PORT"
)

const (
	defaultAPIBaseURL      = "https://www.riigiteataja.ee/api/oigusakt_otsing/1/otsi"
	defaultDocumentBaseURL = "https://www.riigiteataja.ee"
	defaultUserAgent       = "est-lawyer-data-retriever/0.1 (Non-commercial research project)"
)

// Config is the explicit per-run configuration threaded through constructors.
type Config struct {
	API      APIConfig
	Database DatabaseConfig
	Harvest  HarvestConfig
	Log      LogConfig
	Server   ServerConfig
}

// APIConfig describes how the Riigi Teataja API is reached.
type APIConfig struct {
	BaseURL         string
	DocumentBaseURL string
	UserAgent       string
	RequestDelay    time.Duration
	Timeout         time.Duration
	MaxRetries      int
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver   string
	URL      string
	Dir      string
	Filename string
}

// HarvestConfig holds reconciliation tuning.
type HarvestConfig struct {
	CheckpointEvery int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	Development bool
}

// ServerConfig holds web UI settings.
type ServerConfig struct {
	Port string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, defaultAPIBaseURL)
	v.SetDefault(KeyDocumentBaseURL, defaultDocumentBaseURL)
	v.SetDefault(KeyRequestDelay, 2.0)
	v.SetDefault(KeyUserAgent, defaultUserAgent)
	v.SetDefault(KeyRequestTimeout, 30)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeyDatabaseDriver, DriverSQLite)
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyDatabaseDir, "./data")
	v.SetDefault(KeyDatabaseFilename, "riigiteataja_docs.sqlite")
	v.SetDefault(KeyCheckpointEvery, 10)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyPort, "8080")
}

// New builds a viper instance with defaults and environment binding. If
// configFile is non-empty it must exist; otherwise rtharvest.yaml is read from
// the working directory when present. A .env file is loaded first when found.
func New(configFile string) (*viper.Viper, error) {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("rtharvest")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// Load reads a Config out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:         v.GetString(KeyAPIBaseURL),
			DocumentBaseURL: v.GetString(KeyDocumentBaseURL),
			UserAgent:       v.GetString(KeyUserAgent),
			RequestDelay:    time.Duration(v.GetFloat64(KeyRequestDelay) * float64(time.Second)),
			Timeout:         time.Duration(v.GetFloat64(KeyRequestTimeout) * float64(time.Second)),
			MaxRetries:      v.GetInt(KeyMaxRetries),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString(KeyDatabaseDriver),
			URL:      v.GetString(KeyDatabaseURL),
			Dir:      v.GetString(KeyDatabaseDir),
			Filename: v.GetString(KeyDatabaseFilename),
		},
		Harvest: HarvestConfig{
			CheckpointEvery: v.GetInt(KeyCheckpointEvery),
		},
		Log: LogConfig{
			Level:       v.GetString(KeyLogLevel),
			Development: v.GetBool(KeyLogDevelopment),
		},
		Server: ServerConfig{
			Port: v.GetString(KeyPort),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%s is required", KeyAPIBaseURL)
	}
	if c.API.DocumentBaseURL == "" {
		return fmt.Errorf("%s is required", KeyDocumentBaseURL)
	}
	if c.API.RequestDelay < 0 {
		return fmt.Errorf("%s must not be negative", KeyRequestDelay)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyRequestTimeout)
	}
	if c.API.MaxRetries < 1 {
		return fmt.Errorf("%s must be at least 1", KeyMaxRetries)
	}
	if c.Harvest.CheckpointEvery < 1 {
		return fmt.Errorf("%s must be at least 1", KeyCheckpointEvery)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Filename == "" {
			return fmt.Errorf("%s is required for the sqlite driver", KeyDatabaseFilename)
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("%s is required for the postgres driver", KeyDatabaseURL)
		}
	default:
		return fmt.Errorf("unsupported %s %q", KeyDatabaseDriver, c.Database.Driver)
	}

	return nil
}

// DSN returns the data source name for the configured driver. For sqlite it is
// the database file path.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverPostgres {
		return d.URL
	}
	return filepath.Join(d.Dir, d.Filename)
}
