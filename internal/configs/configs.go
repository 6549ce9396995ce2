/*
Package configs is responsible for loading and validating the application's configuration settings.

Values come from environment variables, optionally seeded from a local .env file, and cover
the listen address, CORS origins, the history storage backend, and session and
credential tuning.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"chatcast/internal/app/storage"
	"chatcast/internal/pkg/logx"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	LogLevel        string        `envconfig:"LOG_LEVEL"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

	// Security Settings
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	PasswordHasher string   `envconfig:"PASSWORD_HASHER" default:"bcrypt"`
	BcryptCost     int      `envconfig:"BCRYPT_COST" default:"10"`

	// Session Settings
	SubscriberBuffer int  `envconfig:"SUBSCRIBER_BUFFER" default:"100"`
	ReplayHistory    bool `envconfig:"REPLAY_HISTORY" default:"false"`
	EchoToSender     bool `envconfig:"ECHO_TO_SENDER" default:"true"`

	// History Storage Settings
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"file"`
	HistoryFile    string `envconfig:"HISTORY_FILE" default:"messages.json"`
	BadgerDir      string `envconfig:"BADGER_DIR" default:"data/badger"`
	PersistRetries int    `envconfig:"PERSIST_RETRIES" default:"3"`

	// Database Settings
	DatabaseDSN string `envconfig:"DATABASE_URL"`

	// S3 Storage Settings
	S3BucketName      string `envconfig:"S3_BUCKET_NAME"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3ObjectKey       string `envconfig:"S3_OBJECT_KEY"`
}

// LoadConfig reads the configuration from the environment, after loading a .env file from
// the working directory if one exists, and validates it.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.PasswordHasher = strings.ToLower(strings.TrimSpace(cfg.PasswordHasher))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges and the settings each storage backend requires.
func (c *AppConfig) Validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer)
	}

	if c.PersistRetries < 0 {
		return fmt.Errorf("PERSIST_RETRIES must not be negative, got %d", c.PersistRetries)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
		}
	}

	switch c.PasswordHasher {
	case "bcrypt":
		if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
		}
	case "argon2":
	default:
		return fmt.Errorf("unknown PASSWORD_HASHER %q (want bcrypt or argon2)", c.PasswordHasher)
	}

	switch c.StorageBackend {
	case storage.BackendFile:
		if c.HistoryFile == "" {
			return fmt.Errorf("HISTORY_FILE is required for the %s backend", c.StorageBackend)
		}
	case storage.BackendBadger:
		if c.BadgerDir == "" {
			return fmt.Errorf("BADGER_DIR is required for the %s backend", c.StorageBackend)
		}
	case storage.BackendPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for the %s backend", c.StorageBackend)
		}
	case storage.BackendS3:
		missing := []string{}
		for name, value := range map[string]string{
			"S3_BUCKET_NAME":       c.S3BucketName,
			"S3_ENDPOINT":          c.S3Endpoint,
			"S3_ACCESS_KEY_ID":     c.S3AccessKeyID,
			"S3_SECRET_ACCESS_KEY": c.S3SecretAccessKey,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("the %s backend requires %s", c.StorageBackend, strings.Join(missing, ", "))
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	return nil
}

// LogOptions returns the settings for the global logger.
func (c *AppConfig) LogOptions() logx.Options {
	return logx.Options{Development: c.IsDevelopment(), Level: c.LogLevel}
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Address returns the host:port the server listens on.
func (c *AppConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StorageConfig returns the settings for the selected history backend.
func (c *AppConfig) StorageConfig() storage.ServiceConfig {
	return storage.ServiceConfig{
		Backend:           c.StorageBackend,
		HistoryFile:       c.HistoryFile,
		BadgerDir:         c.BadgerDir,
		DatabaseDSN:       c.DatabaseDSN,
		S3BucketName:      c.S3BucketName,
		S3Endpoint:        c.S3Endpoint,
		S3AccessKeyID:     c.S3AccessKeyID,
		S3SecretAccessKey: c.S3SecretAccessKey,
		S3ObjectKey:       c.S3ObjectKey,
	}
}

func cleanList(values []string) []string {
	out := []string{}
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
