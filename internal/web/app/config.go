package app

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIURL              string        // Base URL of the mars API (default: http://localhost:8080)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 3000)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	APITimeout          time.Duration // Timeout for each call to the API, refreshes included (default: 15s)
	CookieSecure        bool          // Mark cookies written by the web server as Secure (default: true outside dev)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	return Config{
		APIURL:              strings.TrimRight(getEnvOrDefault("MARS_API_URL", "http://localhost:8080"), "/"),
		Env:                 env,
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 3000),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		APITimeout:          getEnvDurationOrDefault("API_TIMEOUT", 15*time.Second),
		CookieSecure:        getEnvBoolOrDefault("COOKIE_SECURE", env != "dev"),
	}
}

// Validate reports a config the server cannot start with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Key: "MARS_API_URL", Value: c.APIURL}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Key: "PORT", Value: strconv.Itoa(c.Port)}
	}
	return nil
}

// ConfigError names the environment variable holding an unusable value.
type ConfigError struct {
	Key   string
	Value string
}

func (e *ConfigError) Error() string {
	return "invalid " + e.Key + ": " + strconv.Quote(e.Value)
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
