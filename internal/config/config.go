package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port      int
	LogLevel  string
	LogFormat string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Teamleader API
	AuthURI      string
	APIURI       string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Seed credential, only used when the token table is still empty
	Code         string
	AuthToken    string
	RefreshToken string

	PageSize      int
	RateLimitWait time.Duration

	ExportPath string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBName:       getEnv("DB_NAME", "teamleader"),
		AuthURI:      getEnv("TL_AUTH_URI", "https://focus.teamleader.eu"),
		APIURI:       getEnv("TL_API_URI", "https://api.focus.teamleader.eu"),
		ClientID:     getEnv("TL_CLIENT_ID", ""),
		ClientSecret: getEnv("TL_CLIENT_SECRET", ""),
		RedirectURI:  getEnv("TL_REDIRECT_URI", ""),
		Code:         getEnv("TL_CODE", ""),
		AuthToken:    getEnv("TL_AUTH_TOKEN", ""),
		RefreshToken: getEnv("TL_REFRESH_TOKEN", ""),
		ExportPath:   getEnv("EXPORT_PATH", "/tmp/contacts_export.csv"),
	}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	pageStr := getEnv("TL_PAGE_SIZE", "100")
	pageSize, err := strconv.Atoi(pageStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TL_PAGE_SIZE value: %w", err)
	}
	cfg.PageSize = pageSize

	// Teamleader enforces 100 calls per minute; 600ms between calls stays under it
	waitMsStr := getEnv("TL_RATE_LIMIT_MS", "600")
	waitMs, err := strconv.Atoi(waitMsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TL_RATE_LIMIT_MS value: %w", err)
	}
	cfg.RateLimitWait = time.Duration(waitMs) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
