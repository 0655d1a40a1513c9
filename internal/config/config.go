package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Blob       BlobConfig
	Logging    LoggingConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	Name           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
}

// Supported relational drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver      string
	URL         string
	AutoMigrate bool
}

// Supported blob backends
const (
	BlobGridFS = "gridfs"
	BlobRedis  = "redis"
	BlobLocal  = "local"
)

type BlobConfig struct {
	Backend       string
	MongoURI      string
	MongoDatabase string
	GridFSBucket  string
	RedisURL      string
	Dir           string
}

type LoggingConfig struct {
	Level  string
	Format string // json or console
}

type MonitoringConfig struct {
	PrometheusEnabled bool
	PrometheusPort    int
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("API_PORT", 8080),
			Env:            getEnv("APP_ENV", "development"),
			Name:           getEnv("SERVER_NAME", "reviewboard"),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 64<<20)),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
			URL:         getEnv("DATABASE_URL", "reviewboard.db"),
			AutoMigrate: getEnvBool("AUTO_MIGRATE", true),
		},
		Blob: BlobConfig{
			Backend:       strings.ToLower(getEnv("BLOB_BACKEND", BlobLocal)),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "reviewboard"),
			GridFSBucket:  getEnv("GRIDFS_BUCKET", "photos"),
			RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Dir:           getEnv("BLOB_DIR", "data/photos"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", false),
			PrometheusPort:    getEnvInt("PROMETHEUS_PORT", 9090),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected backends are known and have what they need
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Blob.Backend {
	case BlobGridFS:
		if c.Blob.MongoURI == "" || c.Blob.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the gridfs blob backend")
		}
	case BlobRedis:
		if c.Blob.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis blob backend")
		}
	case BlobLocal:
		if c.Blob.Dir == "" {
			return fmt.Errorf("BLOB_DIR is required for the local blob backend")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be one of gridfs, redis, local, got %q", c.Blob.Backend)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Server.Env == "production" && c.Database.Driver == DriverSQLite {
		return fmt.Errorf("the sqlite driver is for development only; use postgres in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
