package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Billing      BillingConfig
	Notification NotificationConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
}

// BillingConfig holds the period billing policy knobs
type BillingConfig struct {
	// WorkerLimit bounds how many employees are aggregated concurrently.
	WorkerLimit      int
	ExcludeLeaveDays bool
}

type NotificationConfig struct {
	StreamBuffer int
	// Retention is how long read notifications are kept before the purge job deletes them.
	Retention     time.Duration
	PurgeInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env file: %w", err)
	} else if err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	dbMaxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	autoMigrate, err := getEnvBool("DB_AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		MaxConns:    dbMaxConns,
		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Billing configuration
	workerLimit, err := getEnvInt("BILLING_WORKER_LIMIT", 4)
	if err != nil {
		return nil, err
	}
	excludeLeave, err := getEnvBool("BILLING_EXCLUDE_LEAVE_DAYS", true)
	if err != nil {
		return nil, err
	}
	config.Billing = BillingConfig{
		WorkerLimit:      workerLimit,
		ExcludeLeaveDays: excludeLeave,
	}

	streamBuffer, err := getEnvInt("NOTIFICATION_STREAM_BUFFER", 10)
	if err != nil {
		return nil, err
	}
	retention, err := getEnvDuration("NOTIFICATION_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	purgeInterval, err := getEnvDuration("NOTIFICATION_PURGE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	config.Notification = NotificationConfig{
		StreamBuffer:  streamBuffer,
		Retention:     retention,
		PurgeInterval: purgeInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if c.Billing.WorkerLimit < 1 {
		return fmt.Errorf("BILLING_WORKER_LIMIT must be at least 1")
	}
	if c.Notification.StreamBuffer < 1 {
		return fmt.Errorf("NOTIFICATION_STREAM_BUFFER must be at least 1")
	}
	if c.Notification.Retention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be positive")
	}
	if c.Notification.PurgeInterval <= 0 {
		return fmt.Errorf("NOTIFICATION_PURGE_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, err := strconv.ParseBool(strings.ToLower(getEnv(key, strconv.FormatBool(fallback))))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
