package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage backend: memory, redis, postgres
	StorageBackend string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External services
	Broker       BrokerConfig
	Fundamentals FundamentalsConfig
	Telegram     TelegramConfig

	// Strategy rules file (YAML). Empty means built-in defaults.
	StrategyConfigPath string

	// Timezone used to decide "today" for signals and fundamentals freshness
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string
}

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// BrokerConfig holds the brokerage REST gateway configuration
type BrokerConfig struct {
	BaseURL   string
	Token     string
	AccountID string
	// Requests per second allowed against the broker API
	RateLimit int
	// Paper switches the gateway to the in-memory paper broker
	Paper bool
}

// FundamentalsConfig holds the fundamentals scraper configuration
type FundamentalsConfig struct {
	BaseURL string
}

// TelegramConfig holds the notification channel configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
}

// Enabled reports whether Telegram delivery is configured
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageMemory),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "tradebot"),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Broker: BrokerConfig{
			BaseURL:   getEnv("BROKER_BASE_URL", "https://api.broker.example.com"),
			Token:     getEnv("BROKER_TOKEN", ""),
			AccountID: getEnv("BROKER_ACCOUNT_ID", ""),
			RateLimit: getEnvAsInt("BROKER_RATE_LIMIT", 10),
			Paper:     getEnvAsBool("BROKER_PAPER", true),
		},

		Fundamentals: FundamentalsConfig{
			BaseURL: getEnv("FUNDAMENTALS_BASE_URL", "https://finance.example.com"),
		},

		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		},

		StrategyConfigPath: getEnv("STRATEGY_CONFIG", ""),
		Timezone:           getEnv("TIMEZONE", "UTC"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Location returns the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("STORAGE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: memory, redis, postgres")
	}

	if !c.Broker.Paper && c.Broker.Token == "" {
		return fmt.Errorf("BROKER_TOKEN is required unless BROKER_PAPER=true")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
