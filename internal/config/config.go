package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Enabled         bool   `yaml:"enabled" env:"DB_ENABLED"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
		Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	// Upstream is the academic records REST API.
	Upstream struct {
		BaseURL    string  `yaml:"base_url" env:"UPSTREAM_BASE_URL"`
		Token      string  `yaml:"token" env:"UPSTREAM_TOKEN"`
		Timeout    string  `yaml:"timeout" env:"UPSTREAM_TIMEOUT"`
		MaxRetries int     `yaml:"max_retries" env:"UPSTREAM_MAX_RETRIES"`
		RateLimit  float64 `yaml:"rate_limit" env:"UPSTREAM_RATE_LIMIT"`
		Burst      int     `yaml:"burst" env:"UPSTREAM_BURST"`
		PageSize   int     `yaml:"page_size" env:"UPSTREAM_PAGE_SIZE"`
	} `yaml:"upstream"`

	Snapshot struct {
		TTL string `yaml:"ttl" env:"SNAPSHOT_TTL"`
	} `yaml:"snapshot"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`

	Neo4j struct {
		URI      string `yaml:"uri" env:"NEO4J_URI"`
		User     string `yaml:"user" env:"NEO4J_USER"`
		Password string `yaml:"password" env:"NEO4J_PASSWORD"`
		Database string `yaml:"database" env:"NEO4J_DATABASE"`
	} `yaml:"neo4j"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled" env:"OTEL_ENABLED"`
		Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		Insecure    bool   `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
		ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	} `yaml:"tracing"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`
}

// LoadConfig loads defaults, then the YAML file if present, then a .env file
// if present, then environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Existing environment variables win over .env entries.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Enabled = true
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "biograph_insights"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.Issuer = "biograph"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Upstream.Timeout = "15s"
	config.Upstream.MaxRetries = 3
	config.Upstream.RateLimit = 10
	config.Upstream.Burst = 5
	config.Upstream.PageSize = 100

	config.Snapshot.TTL = "2m"

	config.Redis.Prefix = "biograph:insights"
	config.Redis.TTL = "10m"

	config.Neo4j.User = "neo4j"

	config.Tracing.ServiceName = "biograph-insights"

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Upstream.BaseURL == "" {
		return errors.New("upstream base URL is required")
	}
	if u, err := url.Parse(config.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream base URL %q is not an absolute URL", config.Upstream.BaseURL)
	}
	if config.Upstream.PageSize <= 0 {
		return errors.New("upstream page size must be positive")
	}
	if config.Upstream.RateLimit <= 0 {
		return errors.New("upstream rate limit must be positive")
	}

	if config.Database.Enabled && config.Database.Host == "" {
		return errors.New("database host is required")
	}

	for name, value := range map[string]string{
		"upstream timeout":  config.Upstream.Timeout,
		"snapshot ttl":      config.Snapshot.TTL,
		"redis ttl":         config.Redis.TTL,
		"conn max lifetime": config.Database.ConnMaxLifetime,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	return nil
}

// ValidateHTTP checks settings only the HTTP API needs.
func (c *Config) ValidateHTTP() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}
	return nil
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
