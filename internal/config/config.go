package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppName string `envconfig:"APP_NAME" default:"Sonjog API"`
	Env     string `envconfig:"APP_ENV" default:"development"`
	Host    string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port    int    `envconfig:"HTTP_PORT" default:"8000"`

	// DBDriver selects the conversation store: "sqlite" or "postgres".
	DBDriver  string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLiteDSN string `envconfig:"SQLITE_DSN" default:"file:sonjog.db?_pragma=foreign_keys(1)"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"sonjog"`

	JWTSecret            string   `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenMinutes   int      `envconfig:"ACCESS_TOKEN_MINUTES" default:"1440"`
	EncryptKey           string   `envconfig:"ENCRYPTION_KEY" required:"true"`
	LegacyEncryptKeys    []string `envconfig:"LEGACY_ENCRYPTION_KEYS"`
	SecureCookies        bool     `envconfig:"SECURE_COOKIES" default:"false"`
	CORSOrigins          []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	HistoryLimit         int      `envconfig:"HISTORY_LIMIT" default:"500"`
	WSSendBuffer         int      `envconfig:"WS_SEND_BUFFER" default:"64"`
	PresenceBackend      string   `envconfig:"PRESENCE_BACKEND" default:"memory"`
	RedisAddr            string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword        string   `envconfig:"REDIS_PASSWORD"`
	RedisDB              int      `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix       string   `envconfig:"REDIS_KEY_PREFIX" default:"sonjog:"`
	LogLevel             string   `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownGraceSeconds int      `envconfig:"SHUTDOWN_GRACE_SECONDS" default:"10"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	switch c.PresenceBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("PRESENCE_BACKEND must be memory or redis, got %q", c.PresenceBackend)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%s", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SlogLevel parses LOG_LEVEL, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
