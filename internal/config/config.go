// Package config loads client configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the client.
type Config struct {
	APIURL     string        // base URL of the Haven API
	Timeout    time.Duration // per-request timeout
	MaxRetries int           // retries after the first attempt
	RetryBase  time.Duration // first backoff delay, doubled per retry
	DBPath     string        // path to the local credentials database
	LogLevel   string        // debug, info, warn, error
	LogFormat  string        // text or json
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() Config {
	godotenv.Load()

	return Config{
		APIURL:     getenv("HAVEN_API_URL", "http://localhost:5000"),
		Timeout:    time.Duration(getenvInt("HAVEN_TIMEOUT_MS", 12000)) * time.Millisecond,
		MaxRetries: getenvInt("HAVEN_MAX_RETRIES", 2),
		RetryBase:  time.Duration(getenvInt("HAVEN_RETRY_BASE_MS", 500)) * time.Millisecond,
		DBPath:     getenv("HAVEN_DB_PATH", "haven.db"),
		LogLevel:   getenv("HAVEN_LOG_LEVEL", "info"),
		LogFormat:  getenv("HAVEN_LOG_FORMAT", "text"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
