// Package config loads the scheduler's configuration from an optional YAML
// file, environment variables (via struct tags), and a local .env file —
// built-in defaults, overridden by the YAML file, overridden by env. The
// .env file only fills in variables not already set in the environment.
// There is no DATABASE_URL override; the database is configured through
// the DB_* variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig controls the Postgres connection.
type DatabaseConfig struct {
	Host            string `yaml:"host" env:"DB_HOST"`
	Port            int    `yaml:"port" env:"DB_PORT"`
	Name            string `yaml:"name" env:"DB_NAME"`
	User            string `yaml:"user" env:"DB_USER"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds" env:"DB_CONN_MAX_LIFETIME_SECONDS"`
}

// DSN builds a libpq connection string from the discrete fields.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// APIConfig controls the HTTP API listener.
type APIConfig struct {
	Host    string `yaml:"host" env:"API_HOST"`
	Port    int    `yaml:"port" env:"API_PORT"`
	Workers int    `yaml:"workers" env:"API_WORKERS"`
}

// Addr returns the host:port the HTTP server should bind to.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// SchedulerConfig controls the Persistent Scheduler's tick loop and worker
// pool (spec §4.8, §5).
type SchedulerConfig struct {
	TickInterval        time.Duration `yaml:"tick_interval" env:"SCHEDULER_TICK_INTERVAL"`
	WorkerPoolSize      int           `yaml:"worker_pool_size" env:"SCHEDULER_WORKER_POOL_SIZE"`
	ShutdownGrace       time.Duration `yaml:"shutdown_grace" env:"SCHEDULER_SHUTDOWN_GRACE"`
	DefaultTimeout      time.Duration `yaml:"default_timeout" env:"DEFAULT_TIMEOUT"`
	DefaultMaxRetries   int           `yaml:"default_max_retries" env:"DEFAULT_MAX_RETRIES"`
	RateLimitCalls      int           `yaml:"rate_limit_calls" env:"DEFAULT_RATE_LIMIT_CALLS"`
	RateLimitPeriod     time.Duration `yaml:"rate_limit_period" env:"DEFAULT_RATE_LIMIT_PERIOD"`
}

// CollectorConfig carries upstream credentials for the bundled HTTP
// collectors (internal/collector).
type CollectorConfig struct {
	FREDAPIKey        string `yaml:"fred_api_key" env:"FRED_API_KEY"`
	CoinbaseAPIKey    string `yaml:"coinbase_api_key" env:"COINBASE_API_KEY"`
	CoinbaseAPISecret string `yaml:"coinbase_api_secret" env:"COINBASE_API_SECRET"`
}

// Config is the top-level configuration structure.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Collector CollectorConfig `yaml:"collector"`
}

// New returns a Config populated with the spec's stated defaults.
func New() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		API: APIConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Workers: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Scheduler: SchedulerConfig{
			TickInterval:      time.Second,
			WorkerPoolSize:    8,
			ShutdownGrace:     30 * time.Second,
			DefaultTimeout:    300 * time.Second,
			DefaultMaxRetries: 3,
			RateLimitCalls:    10,
			RateLimitPeriod:   60 * time.Second,
		},
	}
}

// Load reads configs/config.yaml (if present), a local .env (if present),
// and then environment variables, in that precedence order (env wins).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/config.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
