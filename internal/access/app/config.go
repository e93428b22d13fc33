package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string // Required: issuer claim for access tokens
	InternalToken string // Required in prod: token the login collaborator presents to create sessions

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./access.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	AccessTokenTTL       time.Duration // Optional: access token lifetime (default: 15m)
	SessionTTL           time.Duration // Optional: session lifetime without refresh (default: 24h)
	AuditQueueSize       int           // Optional: audit recorder queue size (default: 1024)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Session expiry sweep interval (default: 5m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               os.Getenv("ACCESS_ISSUER"),
		InternalToken:        os.Getenv("ACCESS_INTERNAL_TOKEN"),
		DatabaseFile:         getEnvOrDefault("ACCESS_DATABASE_FILE", "access.db"),
		PepperFile:           getEnvOrDefault("ACCESS_PEPPER_FILE", "pepper"),
		AccessTokenTTL:       getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		SessionTTL:           getEnvDurationOrDefault("ACCESS_SESSION_TTL", 24*time.Hour),
		AuditQueueSize:       getEnvIntOrDefault("ACCESS_AUDIT_QUEUE_SIZE", 1024),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "botforge-access"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
