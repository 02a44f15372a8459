// Package config loads service configuration from a YAML file, a .env file
// and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bcbp_parser/internal/logger"
	"bcbp_parser/internal/storage"
)

// Config holds all configuration for the binaries.
type Config struct {
	API     APIConfig      `yaml:"api"`
	NATS    NATSConfig     `yaml:"nats"`
	Storage storage.Config `yaml:"storage"`
	Logs    logger.Options `yaml:"logs"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// APIConfig configures the REST server.
type APIConfig struct {
	Port         int      `yaml:"port"`
	AuthEnabled  bool     `yaml:"authEnabled"`
	APIKeys      []string `yaml:"apiKeys"`
	ReadTimeout  int      `yaml:"readTimeoutSec"`
	WriteTimeout int      `yaml:"writeTimeoutSec"`
}

// NATSConfig configures the feed consumer.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	Queue         string `yaml:"queue"`
	OutputSubject string `yaml:"outputSubject"`
	OutputFormat  string `yaml:"outputFormat"` // json or cbor
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// ReadTimeoutDuration returns the API read timeout.
func (a APIConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(a.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the API write timeout.
func (a APIConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(a.WriteTimeout) * time.Second
}

// Default returns settings for local development.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Port:         8081,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Subject:       "bcbp.scans",
			Queue:         "bcbp-feed",
			OutputSubject: "bcbp.decoded",
			OutputFormat:  "json",
		},
		Storage: storage.DefaultConfig(),
		Logs:    logger.DefaultOptions(),
		Metrics: MetricsConfig{Namespace: "bcbp"},
	}
}

// Load reads path (if non-empty), then .env, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	c.Storage.SQLitePath = resolve(c.Storage.SQLitePath)
	c.Logs.Directory = resolve(c.Logs.Directory)
	return nil
}

func (c *Config) applyEnv() {
	c.API.Port = getEnvAsInt("API_PORT", c.API.Port)
	c.API.AuthEnabled = getEnvAsBool("API_AUTH", c.API.AuthEnabled)
	if keys := getEnv("API_KEYS", ""); keys != "" {
		c.API.APIKeys = splitList(keys)
	}

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)
	c.NATS.Queue = getEnv("NATS_QUEUE", c.NATS.Queue)
	c.NATS.OutputSubject = getEnv("NATS_OUTPUT_SUBJECT", c.NATS.OutputSubject)
	c.NATS.OutputFormat = getEnv("NATS_OUTPUT_FORMAT", c.NATS.OutputFormat)

	c.Storage.SQLitePath = getEnv("SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.Postgres.Host = getEnv("POSTGRES_HOST", c.Storage.Postgres.Host)
	c.Storage.Postgres.Port = getEnvAsInt("POSTGRES_PORT", c.Storage.Postgres.Port)
	c.Storage.Postgres.Database = getEnv("POSTGRES_DATABASE", c.Storage.Postgres.Database)
	c.Storage.Postgres.User = getEnv("POSTGRES_USER", c.Storage.Postgres.User)
	c.Storage.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Storage.Postgres.Password)
	c.Storage.ClickHouse.Host = getEnv("CLICKHOUSE_HOST", c.Storage.ClickHouse.Host)
	c.Storage.ClickHouse.Port = getEnvAsInt("CLICKHOUSE_PORT", c.Storage.ClickHouse.Port)
	c.Storage.ClickHouse.Database = getEnv("CLICKHOUSE_DATABASE", c.Storage.ClickHouse.Database)
	c.Storage.ClickHouse.User = getEnv("CLICKHOUSE_USER", c.Storage.ClickHouse.User)
	c.Storage.ClickHouse.Password = getEnv("CLICKHOUSE_PASSWORD", c.Storage.ClickHouse.Password)

	c.Logs.Level = getEnv("LOG_LEVEL", c.Logs.Level)
	c.Logs.Format = getEnv("LOG_FORMAT", c.Logs.Format)
	c.Logs.Directory = getEnv("LOG_DIR", c.Logs.Directory)

	c.Metrics.Namespace = getEnv("METRICS_NAMESPACE", c.Metrics.Namespace)
}

func (c *Config) validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.API.AuthEnabled && len(c.API.APIKeys) == 0 {
		return errors.New("api.authEnabled set without api.apiKeys")
	}
	switch c.NATS.OutputFormat {
	case "", "json", "cbor":
	default:
		return fmt.Errorf("nats.outputFormat %q: want json or cbor", c.NATS.OutputFormat)
	}
	return nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
