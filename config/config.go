package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort          string
	DatabaseURL         string
	AdminUser           string
	AdminPass           string
	ZenRowsAPIKey       string
	SlackWebhookURL     string
	FetchTimeoutSeconds string
	VerifyIntervalHours string
	EnableHeadlessFetch bool
	LogLevel            string
}

// GetFetchTimeout returns the per-attempt fetch timeout from environment or default.
func (c *Config) GetFetchTimeout() time.Duration {
	if c.FetchTimeoutSeconds == "" {
		return 30 * time.Second
	}

	seconds, err := strconv.Atoi(c.FetchTimeoutSeconds)
	if err != nil || seconds <= 0 {
		logrus.Warnf("Invalid FETCH_TIMEOUT_SECONDS value: %s, using default 30 seconds", c.FetchTimeoutSeconds)
		return 30 * time.Second
	}

	return time.Duration(seconds) * time.Second
}

// GetVerifyInterval returns how often the background fee verification job runs.
func (c *Config) GetVerifyInterval() time.Duration {
	if c.VerifyIntervalHours == "" {
		return 24 * time.Hour
	}

	hours, err := strconv.Atoi(c.VerifyIntervalHours)
	if err != nil || hours <= 0 {
		logrus.Warnf("Invalid VERIFY_INTERVAL_HOURS value: %s, using default 24 hours", c.VerifyIntervalHours)
		return 24 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		AdminUser:           getEnv("ADMIN_USER", ""),
		AdminPass:           getEnv("ADMIN_PASS", ""),
		ZenRowsAPIKey:       getEnv("ZENROWS_API_KEY", ""),
		SlackWebhookURL:     getEnv("SLACK_WEBHOOK_URL", ""),
		FetchTimeoutSeconds: getEnv("FETCH_TIMEOUT_SECONDS", "30"),
		VerifyIntervalHours: getEnv("VERIFY_INTERVAL_HOURS", "24"),
		EnableHeadlessFetch: getEnv("ENABLE_HEADLESS_FETCH", "false") == "true",
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
