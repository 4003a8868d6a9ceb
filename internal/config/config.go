package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/klevu/catalog-sync/pkg/database"
)

// Config holds all configuration for the catalog-sync service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOGSYNC_HTTP_PORT" envDefault:"8020"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalogsync"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalogsync_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalogsync"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis stock registry
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	StockTTL      time.Duration `env:"STOCK_REGISTRY_TTL" envDefault:"15m"`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID  string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-sync"`
	PublishEvents bool     `env:"PUBLISH_ROW_EVENTS" envDefault:"true"`

	// Evaluation
	DetectorWorkers int `env:"DETECTOR_WORKERS" envDefault:"4"`
	AuditWorkers    int `env:"AUDIT_WORKERS" envDefault:"4"`
	AuditPageSize   int `env:"AUDIT_PAGE_SIZE" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse catalog-sync config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.DetectorWorkers < 1 {
		return fmt.Errorf("invalid detector worker count: %d", c.DetectorWorkers)
	}
	if c.AuditWorkers < 1 {
		return fmt.Errorf("invalid audit worker count: %d", c.AuditWorkers)
	}
	if c.AuditPageSize < 1 {
		return fmt.Errorf("invalid audit page size: %d", c.AuditPageSize)
	}
	return nil
}

// PostgresConfig maps the env settings onto the database package config.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// RedisConfig maps the env settings onto the database package config.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
