// Package config reads runtime settings from the environment. A .env file in the
// working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
)

type Config struct {
	HTTPPort       string
	RequestTimeout time.Duration
	LogFormat      string
	AllowedOrigins []string

	StoreDriver   string
	DatabaseURL   string
	SQLitePath    string
	JSONDBPath    string
	DBMaxOpenConn int
	DBMaxIdleConn int
	DBConnMaxLife time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	GeminiAPIKey string
	GeminiModel  string

	RedisURL      string
	AIRateLimit   int
	AuthRateLimit int
	RateWindow    time.Duration

	GmailCredentialsFile string
	GmailTokenFile       string
	InboxOwnerEmail      string
	InboxPollInterval    time.Duration
}

// Load reads .env (if any) and the process environment. It does not validate;
// call Validate before using the result.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", slog.Any("error", err))
	}

	return &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverFile)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/tracker.db"),
		JSONDBPath:    getEnv("JSON_DB_PATH", "data/db.json"),
		DBMaxOpenConn: getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConn: getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLife: getDuration("DB_CONN_MAX_LIFE", 30*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDuration("TOKEN_TTL", 7*24*time.Hour),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		RedisURL:      getEnv("REDIS_URL", ""),
		AIRateLimit:   getInt("AI_RATE_LIMIT", 10),
		AuthRateLimit: getInt("AUTH_RATE_LIMIT", 20),
		RateWindow:    getDuration("RATE_LIMIT_WINDOW", time.Minute),

		GmailCredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", ""),
		GmailTokenFile:       getEnv("GMAIL_TOKEN_FILE", ""),
		InboxOwnerEmail:      getEnv("INBOX_OWNER_EMAIL", ""),
		InboxPollInterval:    getDuration("INBOX_POLL_INTERVAL", 15*time.Minute),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverSQLite, DriverFile:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of postgres, sqlite, file", c.StoreDriver))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.InboxEnabled() && c.GmailTokenFile == "" {
		errs = append(errs, errors.New("GMAIL_TOKEN_FILE is required when inbox sync is enabled"))
	}
	return errors.Join(errs...)
}

// AIEnabled reports whether an LLM provider is configured.
func (c *Config) AIEnabled() bool { return c.GeminiAPIKey != "" }

// InboxEnabled reports whether the Gmail watcher should run.
func (c *Config) InboxEnabled() bool {
	return c.GmailCredentialsFile != "" && c.InboxOwnerEmail != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
