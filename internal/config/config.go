// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
// Command-line flags override the loaded values in cmd/transactions.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Connect  ConnectConfig
	Load     LoadConfig
	Query    QueryConfig
	Source   SourceConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds session settings.
type DatabaseConfig struct {
	// Driver selects the engine: postgres or sqlite (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	User     string `env:"DB_USER" default:"postgres"`
	Password string `env:"DB_PASSWORD"`

	// PasswordSecret names an AWS Secrets Manager secret holding the
	// password. When set it replaces Password at startup.
	PasswordSecret string `env:"DB_PASSWORD_SECRET"`
	SecretRegion   string `env:"DB_SECRET_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	Host string `env:"DB_HOST" default:"127.0.0.1"`
	Port int    `env:"DB_PORT" default:"5432"`

	// Catalog is the Postgres database the session connects to (default: postgres)
	Catalog string `env:"DB_CATALOG" default:"postgres"`

	// Name is the database (Postgres schema) the pipeline works in (default: transactions)
	Name string `env:"DB_NAME" default:"transactions"`

	// SQLitePath is the database file when Driver is sqlite
	SQLitePath string `env:"SQLITE_PATH" envAlt:"DB_SQLITE_PATH" default:"transactions.db"`

	// ConnectTimeout bounds a single connection attempt (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// ConnectConfig holds the bounded retry policy for opening a session.
type ConnectConfig struct {
	// Attempts is the maximum number of connection attempts (default: 3)
	Attempts int `env:"DB_CONNECT_ATTEMPTS" default:"3"`

	// BaseDelay is the backoff base in seconds; attempt n waits BaseDelay^n (default: 2)
	BaseDelay int `env:"DB_CONNECT_BASE_DELAY" default:"2"`
}

// LoadConfig holds upload settings.
type LoadConfig struct {
	// CSVFile is the record source: a path, s3://bucket/key or gs://bucket/object
	CSVFile string `env:"LOAD_CSV_FILE" default:"./transactions.csv"`
}

// QueryConfig holds report defaults for the query command.
type QueryConfig struct {
	Name        string `env:"QUERY_NAME" default:"get_customers"`
	StoreName   string `env:"QUERY_STORE_NAME" default:"King St"`
	ProductName string `env:"QUERY_PRODUCT_NAME" default:"cappuccino"`
}

// SourceConfig holds object-store settings for remote record sources.
type SourceConfig struct {
	// S3Region is the AWS region for s3:// sources (default: us-east-1)
	S3Region string `env:"SOURCE_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// S3Endpoint overrides the S3 endpoint, e.g. for MinIO
	S3Endpoint string `env:"SOURCE_S3_ENDPOINT"`

	// S3PathStyle forces path-style bucket addressing (default: false)
	S3PathStyle bool `env:"SOURCE_S3_PATH_STYLE" default:"false"`

	// MaxBytes caps how much of a source is read (default: 100MB)
	MaxBytes int64 `env:"SOURCE_MAX_BYTES" default:"104857600"`
}

// ServerConfig holds HTTP report server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxSessions caps concurrent report requests, each of which holds a
	// database session (default: 4)
	MaxSessions int `env:"SERVER_MAX_SESSIONS" default:"4"`

	// SessionWait is how long a request waits for a free slot (default: 5s)
	SessionWait time.Duration `env:"SERVER_SESSION_WAIT" default:"5s"`

	// APIKeys is a comma-separated list of keys accepted in X-API-Key.
	// Report routes are open when it is empty.
	APIKeys string `env:"SERVER_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Keys returns the configured API keys, trimmed, without empties.
func (c *ServerConfig) Keys() []string {
	var keys []string
	for _, k := range strings.Split(c.APIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Endpoint returns host:port for log context.
func (c *DatabaseConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
