package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Supabase    SupabaseConfig
	Storage     StorageConfig
	Realtime    RealtimeConfig
	Limits      LimitsConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL     string
	TestURL string
}

type RedisConfig struct {
	URL     string
	Enabled bool
}

type SupabaseConfig struct {
	URL    string
	APIKey string
}

type StorageConfig struct {
	Path string
}

type RealtimeConfig struct {
	MaxReconnectAttempts int
	BaseReconnectDelay   time.Duration
}

type LimitsConfig struct {
	MaxFileSize      int64
	AllowedFileTypes []string
}

// Load configuration from environment variables
func Load() (*Config, error) {
	// Load .env file in non-production environments
	env := os.Getenv("ENVIRONMENT")
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			// .env file is optional
		}
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:           getEnv("HOST", "localhost"),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL:     getEnv("DATABASE_URL", ""),
			TestURL: getEnv("DATABASE_URL_TEST", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379"),
			Enabled: parseBool(getEnv("ENABLE_REDIS_CACHE", "true")),
		},
		Supabase: SupabaseConfig{
			URL:    getEnv("SUPABASE_URL", ""),
			APIKey: getEnv("SUPABASE_API_KEY", ""),
		},
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "./uploads"),
		},
		Realtime: RealtimeConfig{
			MaxReconnectAttempts: parseInt(getEnv("WS_MAX_RECONNECT_ATTEMPTS", "5")),
			BaseReconnectDelay:   parseDuration(getEnv("WS_BASE_RECONNECT_DELAY", "1s")),
		},
		Limits: LimitsConfig{
			MaxFileSize:      parseInt64(getEnv("MAX_FILE_SIZE", "104857600")),
			AllowedFileTypes: strings.Split(getEnv("ALLOWED_FILE_TYPES", "pdf,doc,docx,txt,xlsx,kml,jpg,jpeg,png"), ","),
		},
	}

	// Validate required configuration
	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// GetDatabaseURL returns the appropriate database URL based on environment
func (c *Config) GetDatabaseURL() string {
	if c.Environment == "test" && c.Database.TestURL != "" {
		return c.Database.TestURL
	}
	return c.Database.URL
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if running in test environment
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

func validate(config *Config) error {
	// Database URL is optional for development
	if config.IsProduction() && config.GetDatabaseURL() == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if config.IsProduction() && (config.Supabase.URL == "" || config.Supabase.APIKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_API_KEY are required in production")
	}
	if config.Realtime.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("WS_MAX_RECONNECT_ATTEMPTS must be positive")
	}
	if config.Realtime.BaseReconnectDelay <= 0 {
		return fmt.Errorf("WS_BASE_RECONNECT_DELAY must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(value string) int {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return 0
}

func parseInt64(value string) int64 {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	return 0
}

func parseBool(value string) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return false
}

func parseDuration(value string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return 0
}
