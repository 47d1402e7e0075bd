package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string
	Port        string
	RedisURL    string

	// Dispatch settings
	OfferAvgSpeedKmh    float64
	AuditRetentionHours int
	AuditBufferSize     int

	// Per-connection event rate limiting
	RateLimitRequests int
	RateLimitWindow   int // minutes
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		RedisURL:    getEnv("REDIS_URL", ""),

		OfferAvgSpeedKmh:    getEnvAsFloat("OFFER_AVG_SPEED_KMH", 40),
		AuditRetentionHours: getEnvAsInt("AUDIT_RETENTION_HOURS", 24),
		AuditBufferSize:     getEnvAsInt("AUDIT_BUFFER_SIZE", 1024),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
	}
}

func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionHours) * time.Hour
}

func (c *Config) RateLimitPeriod() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
