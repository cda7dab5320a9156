package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"expense-ledger/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const minSecretLen = 16

type Config struct {
	// HTTP server
	Port         string
	SecureCookie bool

	// Storage
	DataDir string

	// Sessions
	SessionSecret   string
	SessionDuration time.Duration

	// Logging
	LogLevel string

	// Optional account created when there are no users yet
	AdminUser     string
	AdminPassword string
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory if there is one.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		SecureCookie: getEnvBool("SECURE_COOKIE", false),

		DataDir: getEnv("DATA_DIR", "./data"),

		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionDuration: getEnvDuration("SESSION_DURATION", 30*24*time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AdminUser:     getEnv("ADMIN_USER", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DataDir) == "" {
		errors = append(errors, "data directory cannot be empty")
	}

	if len(c.SessionSecret) < minSecretLen {
		errors = append(errors, fmt.Sprintf("SESSION_SECRET must be at least %d characters", minSecretLen))
	}
	if c.SessionDuration < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session duration %v: must be at least 1 minute", c.SessionDuration))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if (c.AdminUser == "") != (c.AdminPassword == "") {
		errors = append(errors, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() zapcore.Level {
	lvl, _ := logger.ParseLevel(c.LogLevel)
	return lvl
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
