package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so that no config.yaml
// or .env of the repository is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestInitializeConfig_Defaults(t *testing.T) {
	inTempDir(t)
	clearTestEnvVars(t)

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, ";", config.CSV.Delimiter)
	assert.Equal(t, ';', config.Delimiter())
	assert.Equal(t, BackendMemory, config.Store.Backend)
	assert.Equal(t, "teamkasse.db", config.Store.SQLitePath)
	assert.Equal(t, "teamkasse", config.Store.MongoDatabase)
	assert.Equal(t, 500, config.Store.MaxBatchSize)
	assert.Equal(t, 18, config.Ingest.StaleDueMonths)
	assert.Equal(t, "", config.Ingest.KeywordsFile)
	assert.Equal(t, ":8080", config.API.Addr)
	assert.True(t, config.API.MetricsEnabled)
	assert.False(t, config.AI.Enabled)
	assert.Equal(t, "gemini-1.5-flash", config.AI.Model)
	assert.Equal(t, 30*time.Second, config.AITimeout())
	assert.Equal(t, "EUR", config.Ledger.Currency)
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	inTempDir(t)
	clearTestEnvVars(t)

	testEnvVars := map[string]string{
		"TEAMKASSE_LOG_LEVEL":               "debug",
		"TEAMKASSE_LOG_FORMAT":              "json",
		"TEAMKASSE_CSV_DELIMITER":           ",",
		"TEAMKASSE_STORE_BACKEND":           "sqlite",
		"TEAMKASSE_STORE_SQLITE_PATH":       "/tmp/kasse.db",
		"TEAMKASSE_STORE_MAX_BATCH_SIZE":    "100",
		"TEAMKASSE_INGEST_STALE_DUE_MONTHS": "12",
		"TEAMKASSE_AI_ENABLED":              "true",
		"TEAMKASSE_AI_MODEL":                "gemini-1.5-pro",
		"GEMINI_API_KEY":                    "test-api-key",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, ',', config.Delimiter())
	assert.Equal(t, BackendSQLite, config.Store.Backend)
	assert.Equal(t, "/tmp/kasse.db", config.Store.SQLitePath)
	assert.Equal(t, 100, config.Store.MaxBatchSize)
	assert.Equal(t, 12, config.Ingest.StaleDueMonths)
	assert.True(t, config.AI.Enabled)
	assert.Equal(t, "gemini-1.5-pro", config.AI.Model)
	assert.Equal(t, "test-api-key", config.AI.APIKey)
}

const fileConfig = `
log:
  level: "warn"
  format: "json"
csv:
  delimiter: "|"
store:
  backend: "mongo"
  mongo_uri: "mongodb://db:27017"
  mongo_database: "kasse"
  max_batch_size: 250
ingest:
  keywords_file: "keywords.yaml"
api:
  addr: "127.0.0.1:9000"
  metrics_enabled: false
`

func TestInitializeConfig_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	clearTestEnvVars(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(fileConfig), 0600))

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, '|', config.Delimiter())
	assert.Equal(t, BackendMongo, config.Store.Backend)
	assert.Equal(t, "mongodb://db:27017", config.Store.MongoURI)
	assert.Equal(t, "kasse", config.Store.MongoDatabase)
	assert.Equal(t, 250, config.Store.MaxBatchSize)
	assert.Equal(t, "keywords.yaml", config.Ingest.KeywordsFile)
	assert.Equal(t, "127.0.0.1:9000", config.API.Addr)
	assert.False(t, config.API.MetricsEnabled)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	clearTestEnvVars(t)
	path := filepath.Join(dir, "kasse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0600))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", config.Log.Level)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestInitializeConfig_HierarchicalPrecedence(t *testing.T) {
	dir := inTempDir(t)
	clearTestEnvVars(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(fileConfig), 0600))

	t.Setenv("TEAMKASSE_LOG_LEVEL", "error")
	t.Setenv("TEAMKASSE_STORE_MAX_BATCH_SIZE", "50")

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level)     // env var wins
	assert.Equal(t, "|", config.CSV.Delimiter)     // config file value
	assert.Equal(t, 50, config.Store.MaxBatchSize) // env var wins
	assert.Equal(t, "kasse", config.Store.MongoDatabase)
}

func validConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		CSV:    CSVConfig{Delimiter: ";"},
		Store:  StoreConfig{Backend: BackendMemory, MaxBatchSize: 500},
		Ingest: IngestConfig{StaleDueMonths: 18},
		AI:     AIConfig{TimeoutSeconds: 30},
	}
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  string
	}{
		{
			name:         "invalid log level",
			modifyConfig: func(c *Config) { c.Log.Level = "invalid" },
			expectError:  "invalid log level",
		},
		{
			name:         "invalid log format",
			modifyConfig: func(c *Config) { c.Log.Format = "invalid" },
			expectError:  "invalid log format",
		},
		{
			name:         "invalid CSV delimiter",
			modifyConfig: func(c *Config) { c.CSV.Delimiter = ";;" },
			expectError:  "CSV delimiter must be a single character",
		},
		{
			name:         "empty CSV delimiter",
			modifyConfig: func(c *Config) { c.CSV.Delimiter = "" },
			expectError:  "CSV delimiter must be a single character",
		},
		{
			name:         "unknown backend",
			modifyConfig: func(c *Config) { c.Store.Backend = "postgres" },
			expectError:  "unknown store backend",
		},
		{
			name: "sqlite without path",
			modifyConfig: func(c *Config) {
				c.Store.Backend = BackendSQLite
				c.Store.SQLitePath = ""
			},
			expectError: "store.sqlite_path is required",
		},
		{
			name:         "mongo without uri",
			modifyConfig: func(c *Config) { c.Store.Backend = BackendMongo },
			expectError:  "store.mongo_uri and store.mongo_database are required",
		},
		{
			name:         "batch size too large",
			modifyConfig: func(c *Config) { c.Store.MaxBatchSize = 501 },
			expectError:  "store.max_batch_size must be between 1 and 500",
		},
		{
			name:         "batch size zero",
			modifyConfig: func(c *Config) { c.Store.MaxBatchSize = 0 },
			expectError:  "store.max_batch_size must be between 1 and 500",
		},
		{
			name:         "stale months",
			modifyConfig: func(c *Config) { c.Ingest.StaleDueMonths = 0 },
			expectError:  "ingest.stale_due_months must be at least 1",
		},
		{
			name:         "AI enabled without API key",
			modifyConfig: func(c *Config) { c.AI.Enabled = true },
			expectError:  "GEMINI_API_KEY required when AI is enabled",
		},
		{
			name: "invalid timeout seconds",
			modifyConfig: func(c *Config) {
				c.AI.Enabled = true
				c.AI.APIKey = "test-key"
				c.AI.TimeoutSeconds = 0
			},
			expectError: "ai.timeout_seconds must be between 1 and 300",
		},
	}

	require.NoError(t, validateConfig(validConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := inTempDir(t)
	clearTestEnvVars(t)

	file, err := LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, file)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("GEMINI_API_KEY") })

	file, err = LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ".env", file)
	assert.Equal(t, "from-dotenv", GetGeminiAPIKey())
	assert.Equal(t, "fallback", GetEnv("TEAMKASSE_NOT_SET", "fallback"))
}

// clearTestEnvVars unsets every variable the loader reads for the duration
// of the test.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		"TEAMKASSE_LOG_LEVEL",
		"TEAMKASSE_LOG_FORMAT",
		"TEAMKASSE_CSV_DELIMITER",
		"TEAMKASSE_STORE_BACKEND",
		"TEAMKASSE_STORE_SQLITE_PATH",
		"TEAMKASSE_STORE_MONGO_URI",
		"TEAMKASSE_STORE_MONGO_DATABASE",
		"TEAMKASSE_STORE_MAX_BATCH_SIZE",
		"TEAMKASSE_INGEST_STALE_DUE_MONTHS",
		"TEAMKASSE_INGEST_KEYWORDS_FILE",
		"TEAMKASSE_API_ADDR",
		"TEAMKASSE_API_METRICS_ENABLED",
		"TEAMKASSE_AI_ENABLED",
		"TEAMKASSE_AI_MODEL",
		"TEAMKASSE_AI_TIMEOUT_SECONDS",
		"TEAMKASSE_LEDGER_CURRENCY",
		"GEMINI_API_KEY",
	}
	for _, envVar := range envVars {
		t.Setenv(envVar, "")
		require.NoError(t, os.Unsetenv(envVar))
	}
}
