package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP         HTTPConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Tasks        TasksConfig
	Log          LogConfig
	StaticDir    string
	AuditLogFile string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustProxy      bool
}

type DatabaseConfig struct {
	Driver       string
	URL          string
	TLS          bool
	MaxOpenConns int
	AutoMigrate  bool
}

type AuthConfig struct {
	SessionSecret     string
	SessionTTL        time.Duration
	SessionStore      string
	RedisURL          string
	CookieName        string
	CookieSecure      bool
	BootstrapUsername string
	BootstrapPassword string
	RateLimit         string
}

type TasksConfig struct {
	// EnforceAssignee restricts completion to the worker the task is assigned to.
	EnforceAssignee bool
}

type LogConfig struct {
	Level string
	JSON  bool
}

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	SessionStoreMemory = "memory"
	SessionStoreSQL    = "sql"
	SessionStoreRedis  = "redis"
)

const defaultSQLitePath = "./data/taskboard.db"

// Load reads the process environment. A .env file in the working directory is
// applied first when present; variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	addr := getEnv("HTTP_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "3000")
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            addr,
			ReadTimeout:     time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SEC", 20)) * time.Second,
			TrustProxy:      getEnvBool("HTTP_TRUST_PROXY", false),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			URL:          getEnv("DATABASE_URL", ""),
			TLS:          getEnvBool("DB_TLS", false),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			SessionSecret:     getEnv("SESSION_SECRET", "change-me-in-production"),
			SessionTTL:        time.Duration(getEnvInt("AUTH_SESSION_TTL_SEC", 86400)) * time.Second,
			SessionStore:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
			RedisURL:          getEnv("REDIS_URL", ""),
			CookieName:        getEnv("AUTH_COOKIE_NAME", "taskboard_session"),
			CookieSecure:      getEnvBool("AUTH_COOKIE_SECURE", false),
			BootstrapUsername: getEnv("AUTH_BOOTSTRAP_USERNAME", "admin"),
			BootstrapPassword: getEnv("AUTH_BOOTSTRAP_PASSWORD", ""),
			RateLimit:         getEnv("AUTH_RATE_LIMIT", "20-M"),
		},
		Tasks: TasksConfig{
			EnforceAssignee: getEnvBool("TASKS_ENFORCE_ASSIGNEE", true),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			JSON:  getEnvBool("LOG_JSON", false),
		},
		StaticDir:    getEnv("STATIC_DIR", "./public"),
		AuditLogFile: getEnv("AUDIT_LOG_FILE", "./data/audit.log"),
	}

	if cfg.Database.URL == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.URL = defaultSQLitePath
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" || c.HTTP.Addr == ":" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, mysql, sqlite; got %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty for driver %s", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be > 0")
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL_SEC must be > 0")
	}
	switch c.Auth.SessionStore {
	case SessionStoreMemory, SessionStoreSQL:
	case SessionStoreRedis:
		if c.Auth.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must not be empty when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of memory, sql, redis; got %q", c.Auth.SessionStore)
	}
	if c.Auth.CookieName == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME must not be empty")
	}
	if c.Auth.BootstrapPassword != "" && c.Auth.BootstrapUsername == "" {
		return fmt.Errorf("AUTH_BOOTSTRAP_USERNAME must not be empty when a bootstrap password is set")
	}
	if c.Auth.RateLimit == "" {
		return fmt.Errorf("AUTH_RATE_LIMIT must not be empty")
	}
	if c.AuditLogFile == "" {
		return fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
