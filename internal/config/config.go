package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the backend and the CLI.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Auth       AuthConfig
	Remote     RemoteConfig
	Cache      CacheConfig
	Activation ActivationConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string
}

// AuthConfig groups the credentials the backend checks on every request.
type AuthConfig struct {
	Session SessionConfig
	// APIKey is the project key clients must send in the apikey header.
	APIKey string
}

// SessionConfig controls session cookies issued on sign-in.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// RemoteConfig tells the customization pipeline where the backend lives.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CacheConfig locates the on-device settings cache.
type CacheConfig struct {
	Path string
}

// ActivationConfig throttles premium activation attempts per account.
type ActivationConfig struct {
	RatePerSecond float64
	Burst         int
}

// Load inspects the environment and builds a Config value. A .env file in the
// working directory is read first; variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
	}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			"",
		),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 0),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 0),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), 0),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 0),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
	}

	cfg.Logging = LoggingConfig{
		Level: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}

	cfg.Auth = AuthConfig{
		Session: SessionConfig{
			Lifetime:     parseDurationWithDefault(os.Getenv("SESSION_LIFETIME"), 12*time.Hour),
			CookieName:   firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "idlely_session"),
			CookieDomain: os.Getenv("SESSION_COOKIE_DOMAIN"),
			CookieSecure: parseBoolWithDefault(os.Getenv("SESSION_COOKIE_SECURE"), true),
		},
		APIKey: firstNonEmpty(os.Getenv("IDLELY_API_KEY"), os.Getenv("API_KEY")),
	}

	cfg.Remote = RemoteConfig{
		BaseURL: firstNonEmpty(os.Getenv("IDLELY_REMOTE_URL"), "http://localhost:8080"),
		APIKey:  firstNonEmpty(os.Getenv("IDLELY_REMOTE_API_KEY"), cfg.Auth.APIKey),
		Timeout: parseDurationWithDefault(os.Getenv("IDLELY_REMOTE_TIMEOUT"), 15*time.Second),
	}

	cfg.Cache = CacheConfig{
		Path: firstNonEmpty(os.Getenv("IDLELY_CACHE_PATH"), defaultCachePath()),
	}

	cfg.Activation = ActivationConfig{
		RatePerSecond: parseFloatWithDefault(os.Getenv("ACTIVATION_RATE"), 0.2),
		Burst:         parseIntWithDefault(os.Getenv("ACTIVATION_BURST"), 3),
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}

	return cfg, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", ".idlely")
	}
	return filepath.Join(dir, "idlely")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseFloatWithDefault(value string, def float64) float64 {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
