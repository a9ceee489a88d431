package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

const validConfigYAML = `
source:
  page_size: 25
  quota: 100
  timeout_sec: 10
partitions: ["US", "JP"]
storage:
  container: "trending"
  prefix: "raw/"
schedule:
  minute: 5
  second: 30
  run_on_startup: true
pipeline:
  timezone: "Asia/Tokyo"
  concurrency: 2
logging:
  level: "debug"
  format: "json"
`

func validConfig() *Config {
	cfg := Default()
	cfg.APIKey = "key"
	cfg.StorageConnection = "mem://"

	return cfg
}

func TestLoadConfig_Valid(t *testing.T) {
	t.Setenv(EnvAPIKey, " secret ")
	t.Setenv(EnvStorageConnection, "file:///tmp/out")

	cfg, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "file:///tmp/out", cfg.StorageConnection)
	assert.Equal(t, []string{"US", "JP"}, cfg.Partitions)
	assert.Equal(t, 25, cfg.Source.PageSize)
	assert.Equal(t, 100, cfg.Source.Quota)
	assert.Equal(t, 10*time.Second, cfg.Source.GetTimeout())
	assert.Equal(t, "raw/", cfg.Storage.Prefix)
	assert.Equal(t, 5, cfg.Schedule.Minute)
	assert.Equal(t, 30, cfg.Schedule.Second)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, "Asia/Tokyo", cfg.Pipeline.Location().String())

	// untouched keys keep their defaults
	assert.Equal(t, "mostPopular", cfg.Source.Chart)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvStorageConnection, "mem://")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPartitions, cfg.Partitions)
	assert.Equal(t, 200, cfg.Source.Quota)
	assert.Equal(t, 50, cfg.Source.PageSize)
	assert.Equal(t, 10, cfg.Schedule.Minute)
	assert.Equal(t, "rawdata", cfg.Storage.Container)
}

func TestLoadConfig_MissingSecretsIsFatal(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvStorageConnection, "mem://")

	_, err := LoadConfig("")
	require.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvStorageConnection, "  ")
	t.Setenv(EnvAzureConnection, "")

	_, err = LoadConfig("")
	require.ErrorIs(t, err, ErrMissingStorageConnection)
}

func TestLoadConfig_AzureConnectionFallback(t *testing.T) {
	const azure = "DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=a2V5;EndpointSuffix=core.windows.net"

	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvStorageConnection, "")
	t.Setenv(EnvAzureConnection, azure)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, azure, cfg.StorageConnection)

	// the generic variable wins when both are set
	t.Setenv(EnvStorageConnection, "mem://")

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "mem://", cfg.StorageConnection)
}

func TestLoadStorageConfig_NoAPIKeyNeeded(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvStorageConnection, "mem://")

	cfg, err := LoadStorageConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, DefaultPartitions, cfg.Partitions)

	t.Setenv(EnvStorageConnection, "")
	t.Setenv(EnvAzureConnection, "")

	_, err = LoadStorageConfig("")
	require.ErrorIs(t, err, ErrMissingStorageConnection)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(createTempConfigFile(t, "invalid: yaml: content: [}"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(c *Config)
		wantErr error
		name    string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no partitions", mutate: func(c *Config) { c.Partitions = nil }, wantErr: ErrNoPartitions},
		{name: "lowercase partition", mutate: func(c *Config) { c.Partitions = []string{"us"} }, wantErr: ErrInvalidPartition},
		{name: "duplicate partition", mutate: func(c *Config) { c.Partitions = []string{"US", "US"} }, wantErr: ErrDuplicatePartition},
		{name: "no endpoint", mutate: func(c *Config) { c.Source.Endpoint = "" }, wantErr: ErrMissingEndpoint},
		{name: "page size too big", mutate: func(c *Config) { c.Source.PageSize = 51 }, wantErr: ErrInvalidPageSize},
		{name: "page size zero", mutate: func(c *Config) { c.Source.PageSize = 0 }, wantErr: ErrInvalidPageSize},
		{name: "quota zero", mutate: func(c *Config) { c.Source.Quota = 0 }, wantErr: ErrInvalidQuota},
		{name: "timeout zero", mutate: func(c *Config) { c.Source.TimeoutSec = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative rate", mutate: func(c *Config) { c.Source.RequestsPerSec = -1 }, wantErr: ErrInvalidRate},
		{name: "no container", mutate: func(c *Config) { c.Storage.Container = "" }, wantErr: ErrMissingContainer},
		{name: "minute out of range", mutate: func(c *Config) { c.Schedule.Minute = 60 }, wantErr: ErrInvalidMinute},
		{name: "second negative", mutate: func(c *Config) { c.Schedule.Second = -1 }, wantErr: ErrInvalidSecond},
		{name: "bad timezone", mutate: func(c *Config) { c.Pipeline.Timezone = "Mars/Olympus" }, wantErr: ErrInvalidTimezone},
		{name: "zero concurrency", mutate: func(c *Config) { c.Pipeline.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: ErrInvalidLogLevel},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestConfig_SaveConfigOmitsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = "super-secret"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.SaveConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret")
	assert.Contains(t, string(data), "mostPopular")
}

func TestConfig_String(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "Config{Partitions: 10, Quota: 200, PageSize: 50, Schedule: xx:10:00, Concurrency: 1}", cfg.String())
}

func TestLoadConfig_SampleFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvStorageConnection, "mem://")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "worker.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPartitions, cfg.Partitions)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 60*time.Second, cfg.Schedule.PastDue())
}
