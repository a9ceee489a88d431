// Package config provides configuration management for the trending worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables holding the two required secrets.
const (
	EnvAPIKey            = "YOUTUBE_API_KEY"
	EnvStorageConnection = "STORAGE_CONNECTION_STRING"
	EnvConfigPath        = "TRENDING_CONFIG"

	// EnvAzureConnection is read when EnvStorageConnection is unset.
	EnvAzureConnection = "AZURE_STORAGE_CONNECTION_STRING"
)

// Configuration validation errors.
var (
	ErrMissingAPIKey            = errors.New(EnvAPIKey + " is required")
	ErrMissingStorageConnection = errors.New(EnvStorageConnection + " or " + EnvAzureConnection + " is required")
	ErrNoPartitions             = errors.New("at least one partition is required")
	ErrInvalidPartition         = errors.New("partition must be a two-letter region code")
	ErrDuplicatePartition       = errors.New("partition listed more than once")
	ErrMissingEndpoint          = errors.New("source.endpoint is required")
	ErrInvalidPageSize          = errors.New("source.page_size must be between 1 and 50")
	ErrInvalidQuota             = errors.New("source.quota must be at least 1")
	ErrInvalidTimeout           = errors.New("source.timeout_sec must be at least 1")
	ErrInvalidRate              = errors.New("source.requests_per_sec must not be negative")
	ErrMissingContainer         = errors.New("storage.container is required")
	ErrInvalidMinute            = errors.New("schedule.minute must be between 0 and 59")
	ErrInvalidSecond            = errors.New("schedule.second must be between 0 and 59")
	ErrInvalidTimezone          = errors.New("pipeline.timezone is not a known location")
	ErrInvalidConcurrency       = errors.New("pipeline.concurrency must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

var regionCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// DefaultPartitions is the reference set of region codes.
var DefaultPartitions = []string{"IN", "US", "BR", "ID", "MX", "JP", "DE", "GB", "FR", "KR"}

// Config represents the complete worker configuration.
type Config struct {
	Source     SourceConfig   `yaml:"source"`
	Storage    StorageConfig  `yaml:"storage"`
	Schedule   ScheduleConfig `yaml:"schedule"`
	Server     ServerConfig   `yaml:"server"`
	Logging    LoggingConfig  `yaml:"logging"`
	Partitions []string       `yaml:"partitions"`
	Pipeline   PipelineConfig `yaml:"pipeline"`

	// Secrets never come from the YAML file.
	APIKey            string `yaml:"-"`
	StorageConnection string `yaml:"-"`
}

// SourceConfig describes the ranking API.
type SourceConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	Chart      string   `yaml:"chart"`
	UserAgent  string   `yaml:"user_agent"`
	Parts      []string `yaml:"parts"`
	PageSize   int      `yaml:"page_size"`
	Quota      int      `yaml:"quota"`
	TimeoutSec int      `yaml:"timeout_sec"`

	// RequestsPerSec paces page requests; 0 disables pacing.
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

// StorageConfig describes where artifacts are written.
type StorageConfig struct {
	// Container is used when the connection descriptor names no bucket.
	Container string `yaml:"container"`
	Prefix    string `yaml:"prefix"`
}

// ScheduleConfig fires the job once an hour at Minute:Second.
type ScheduleConfig struct {
	Minute     int  `yaml:"minute"`
	Second     int  `yaml:"second"`
	RunOnStart bool `yaml:"run_on_startup"`
	Disabled   bool `yaml:"disabled"`
	PastDueSec int  `yaml:"past_due_sec"`
}

// ServerConfig controls the trigger and metrics HTTP server.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	TriggerToken string `yaml:"trigger_token"`
	Enabled      bool   `yaml:"enabled"`

	// TrustCronHeader admits X-Appengine-Cron requests without a token.
	// Enable only when running on App Engine.
	TrustCronHeader bool `yaml:"trust_cron_header"`
}

// PipelineConfig controls orchestration.
type PipelineConfig struct {
	Timezone                string `yaml:"timezone"`
	Concurrency             int    `yaml:"concurrency"`
	SkipPublishOnFetchError bool   `yaml:"skip_publish_on_fetch_error"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the reference configuration without secrets.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Endpoint:   "https://youtube.googleapis.com/",
			Chart:      "mostPopular",
			UserAgent:  "ytrends-worker/1.0",
			Parts:      []string{"id", "snippet", "statistics", "contentDetails"},
			PageSize:   50,
			Quota:      200,
			TimeoutSec: 30,

			RequestsPerSec: 5,
		},
		Storage: StorageConfig{
			Container: "rawdata",
		},
		Schedule: ScheduleConfig{
			Minute:     10,
			Second:     0,
			PastDueSec: 60,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Partitions: append([]string(nil), DefaultPartitions...),
		Pipeline: PipelineConfig{
			Timezone:    "UTC",
			Concurrency: 1,
		},
	}
}

// LoadConfig loads configuration from an optional YAML file and the environment.
// An empty path means defaults only.
func LoadConfig(path string) (*Config, error) {
	return load(path, (*Config).Validate)
}

// LoadStorageConfig loads configuration for tools that only read published
// artifacts, so the API key is not required.
func LoadStorageConfig(path string) (*Config, error) {
	return load(path, (*Config).ValidateStorage)
}

func load(path string, validate func(*Config) error) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv copies secrets from the environment lookup into the config.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.APIKey = strings.TrimSpace(getenv(EnvAPIKey))
	c.StorageConnection = strings.TrimSpace(getenv(EnvStorageConnection))

	if c.StorageConnection == "" {
		c.StorageConnection = strings.TrimSpace(getenv(EnvAzureConnection))
	}
}

// SaveConfig saves the non-secret configuration to a YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if c.Source.Endpoint == "" {
		return ErrMissingEndpoint
	}

	if c.Source.PageSize < 1 || c.Source.PageSize > 50 {
		return ErrInvalidPageSize
	}

	if c.Source.Quota < 1 {
		return ErrInvalidQuota
	}

	if c.Source.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Source.RequestsPerSec < 0 {
		return ErrInvalidRate
	}

	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		return ErrInvalidMinute
	}

	if c.Schedule.Second < 0 || c.Schedule.Second > 59 {
		return ErrInvalidSecond
	}

	if c.Pipeline.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	return nil
}

// ValidateStorage checks the settings needed to locate published artifacts.
func (c *Config) ValidateStorage() error {
	if c.StorageConnection == "" {
		return ErrMissingStorageConnection
	}

	if len(c.Partitions) == 0 {
		return ErrNoPartitions
	}

	seen := make(map[string]bool, len(c.Partitions))

	for i, p := range c.Partitions {
		if !regionCodePattern.MatchString(p) {
			return fmt.Errorf("%w: partitions[%d]=%q", ErrInvalidPartition, i, p)
		}

		if seen[p] {
			return fmt.Errorf("%w: %s", ErrDuplicatePartition, p)
		}

		seen[p] = true
	}

	if c.Storage.Container == "" {
		return ErrMissingContainer
	}

	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, c.Pipeline.Timezone)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// GetTimeout returns the per-request timeout of the source client.
func (s *SourceConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Location returns the timezone used to compute capture dates.
// Validate guarantees the name resolves.
func (p *PipelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// PastDue returns how late a tick may fire before it is reported as past due.
func (s *ScheduleConfig) PastDue() time.Duration {
	return time.Duration(s.PastDueSec) * time.Second
}

// String returns a string representation of the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Partitions: %d, Quota: %d, PageSize: %d, Schedule: xx:%02d:%02d, Concurrency: %d}",
		len(c.Partitions),
		c.Source.Quota,
		c.Source.PageSize,
		c.Schedule.Minute,
		c.Schedule.Second,
		c.Pipeline.Concurrency,
	)
}
