package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Redis    RedisConfig
	Import   ImportConfig
	Archive  ArchiveConfig
	Admin    AdminConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	PublicURL string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AuthConfig configures session tokens and the identity provider.
type AuthConfig struct {
	JWTSecret string
	// PrivateKey is a base64 encoded PEM key. When set tokens are signed with RS256.
	PrivateKey        string
	TokenTTL          time.Duration
	GoogleUserInfoURL string
	AllowListFile     string
}

type StorageConfig struct {
	Provider string // s3, r2
	S3       S3Config
	// URLTTL is the lifetime of presigned download and upload URLs.
	URLTTL time.Duration
}

type S3Config struct {
	BucketName string `env:"S3_BUCKET_NAME" required:"true"`
	Endpoint   string `env:"S3_ENDPOINT"`
	Region     string `env:"S3_REGION" required:"true"`
	AccessKey  string `env:"S3_ACCESS_KEY" required:"true"`
	SecretKey  string `env:"S3_SECRET_KEY" required:"true"`
}

type WorkerConfig struct {
	Concurrency int
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

// ImportConfig limits customer imports per workspace.
type ImportConfig struct {
	MaxRows      int
	RateMax      int
	RateWindow   time.Duration
	RetryAttempt int
}

// ArchiveConfig drives the scheduled invoice archival.
type ArchiveConfig struct {
	Cron        string
	AfterMonths int
}

type AdminConfig struct {
	Enabled  bool
	User     string
	Password string
}

type LogConfig struct {
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "bizdesk"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			PrivateKey:        getEnv("PRIVATE_KEY", ""),
			TokenTTL:          getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
			GoogleUserInfoURL: getEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo"),
			AllowListFile:     getEnv("ALLOWLIST_FILE", ""),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "s3"),
			S3: S3Config{
				BucketName: getEnv("S3_BUCKET_NAME", ""),
				Endpoint:   getEnv("S3_ENDPOINT", ""),
				Region:     getEnv("S3_REGION", ""),
				AccessKey:  getEnv("S3_ACCESS_KEY", ""),
				SecretKey:  getEnv("S3_SECRET_KEY", ""),
			},
			URLTTL: getEnvAsDuration("STORAGE_URL_TTL", time.Hour),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Import: ImportConfig{
			MaxRows:      getEnvAsInt("IMPORT_MAX_ROWS", 5000),
			RateMax:      getEnvAsInt("IMPORT_RATE_MAX", 10),
			RateWindow:   getEnvAsDuration("IMPORT_RATE_WINDOW", time.Hour),
			RetryAttempt: getEnvAsInt("IMPORT_MAX_RETRY", 3),
		},
		Archive: ArchiveConfig{
			Cron:        getEnv("ARCHIVE_CRON", "0 3 * * *"),
			AfterMonths: getEnvAsInt("ARCHIVE_AFTER_MONTHS", 12),
		},
		Admin: AdminConfig{
			Enabled:  getEnvAsBool("ADMIN_PANEL_ENABLED", false),
			User:     getEnv("ADMIN_PANEL_USER", ""),
			Password: getEnv("ADMIN_PANEL_PASSWORD", ""),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.Auth.PrivateKey == "" {
		return nil, fmt.Errorf("either JWT_SECRET or PRIVATE_KEY must be set")
	}
	if cfg.Admin.Enabled && (cfg.Admin.User == "" || cfg.Admin.Password == "") {
		return nil, fmt.Errorf("ADMIN_PANEL_USER and ADMIN_PANEL_PASSWORD are required when the admin panel is enabled")
	}

	return cfg, nil
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host,
		c.User,
		c.Password,
		c.Name,
		c.Port,
		c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Save writes the configuration as JSON, secrets included. Used by deskctl for debugging.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
