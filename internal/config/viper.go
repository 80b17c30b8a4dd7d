// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// MaxBatchSize is the largest write batch any backend accepts.
const MaxBatchSize = 500

// LogConfig configures the logrus adapter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// CSVConfig configures the legacy export reader.
type CSVConfig struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri" yaml:"-"` // may carry credentials
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
	MaxBatchSize  int    `mapstructure:"max_batch_size" yaml:"max_batch_size"`
}

// IngestConfig tunes import runs.
type IngestConfig struct {
	StaleDueMonths int    `mapstructure:"stale_due_months" yaml:"stale_due_months"`
	KeywordsFile   string `mapstructure:"keywords_file" yaml:"keywords_file"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// AIConfig configures the Gemini fine suggester.
type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Model          string `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	APIKey         string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
}

// LedgerConfig controls how amounts are presented.
type LedgerConfig struct {
	Currency string `mapstructure:"currency" yaml:"currency"`
}

// Config represents the complete application configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	CSV    CSVConfig    `mapstructure:"csv" yaml:"csv"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`
	API    APIConfig    `mapstructure:"api" yaml:"api"`
	AI     AIConfig     `mapstructure:"ai" yaml:"ai"`
	Ledger LedgerConfig `mapstructure:"ledger" yaml:"ledger"`
}

// Delimiter returns the CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter)
	return r
}

// AITimeout returns the Gemini request timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load reads the configuration. An empty configFile searches the default
// locations; a missing file there is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.teamkasse")
		v.AddConfigPath(".teamkasse")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("TEAMKASSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. The API key is always read from the unprefixed variable
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY environment variable: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ";")

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.sqlite_path", "teamkasse.db")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_database", "teamkasse")
	v.SetDefault("store.max_batch_size", MaxBatchSize)

	v.SetDefault("ingest.stale_due_months", 18)
	v.SetDefault("ingest.keywords_file", "")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.metrics_enabled", true)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.timeout_seconds", 30)

	v.SetDefault("ledger.currency", "EUR")
}

// Validate checks a configuration after command line overrides were applied.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if utf8.RuneCountInString(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	switch config.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendMongo:
		if config.Store.MongoURI == "" || config.Store.MongoDatabase == "" {
			return fmt.Errorf("store.mongo_uri and store.mongo_database are required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s (must be memory, sqlite or mongo)", config.Store.Backend)
	}

	if config.Store.MaxBatchSize < 1 || config.Store.MaxBatchSize > MaxBatchSize {
		return fmt.Errorf("store.max_batch_size must be between 1 and %d, got: %d", MaxBatchSize, config.Store.MaxBatchSize)
	}

	if config.Ingest.StaleDueMonths < 1 {
		return fmt.Errorf("ingest.stale_due_months must be at least 1, got: %d", config.Ingest.StaleDueMonths)
	}

	if config.AI.Enabled {
		if config.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
		}

		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
	}

	return nil
}
