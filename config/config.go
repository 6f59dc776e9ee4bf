package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort      string
	DatabaseURL     string
	QuoteAPIBaseURL string
	QuoteAPIKey     string
	LogLevel        string
}

// BatchConfig holds the tunables for bulk quote processing.
type BatchConfig struct {
	ChunkSize       int           `json:"chunk_size"`
	InterBatchDelay time.Duration `json:"inter_batch_delay"`
	MaxRecords      int           `json:"max_records"`
	RunRetention    time.Duration `json:"run_retention"`
}

// DefaultBatchConfig returns the default pipeline tuning: chunks of 10
// concurrent records with a 2 second pause between chunks, capped at 500
// records per submission to protect the remote service's rate limits.
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		ChunkSize:       10,
		InterBatchDelay: 2 * time.Second,
		MaxRecords:      500,
		RunRetention:    4 * time.Hour,
	}
}

// ServiceConfig holds remote underwriting service configuration.
type ServiceConfig struct {
	BaseURL            string        `json:"base_url"`
	APIKey             string        `json:"-"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
}

// DefaultServiceConfig returns the default remote service configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		HTTPRequestTimeout: 30 * time.Second,
	}
}

// DatabaseConfig holds database connection pool configuration.
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// DefaultDatabaseConfig returns production-ready pool defaults.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		QuoteAPIBaseURL: getEnv("QUOTE_API_BASE_URL", ""),
		QuoteAPIKey:     getEnv("QUOTE_API_KEY", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// LoadBatchConfig reads pipeline tuning from the environment, falling back to
// the documented defaults for missing or invalid values.
func LoadBatchConfig() *BatchConfig {
	cfg := DefaultBatchConfig()

	if v := os.Getenv("BATCH_CHUNK_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 {
			cfg.ChunkSize = size
		} else {
			logrus.Warnf("Invalid BATCH_CHUNK_SIZE value: %s, using default %d", v, cfg.ChunkSize)
		}
	}

	if v := os.Getenv("BATCH_DELAY_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			cfg.InterBatchDelay = time.Duration(secs) * time.Second
		} else {
			logrus.Warnf("Invalid BATCH_DELAY_SECONDS value: %s, using default %v", v, cfg.InterBatchDelay)
		}
	}

	if v := os.Getenv("BATCH_MAX_RECORDS"); v != "" {
		if max, err := strconv.Atoi(v); err == nil && max > 0 {
			cfg.MaxRecords = max
		} else {
			logrus.Warnf("Invalid BATCH_MAX_RECORDS value: %s, using default %d", v, cfg.MaxRecords)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
