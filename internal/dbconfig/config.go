package dbconfig

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds Postgres connection settings. Callers usually populate it
// from the config file's database section and then Resolve it, which lets
// the DB_* environment variables override any field.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Resolve overlays the DB_* environment variables on the receiver and
// fills the remaining gaps with local-development defaults.
func (c Config) Resolve() Config {
	c.Host = envOr("DB_HOST", c.Host, "localhost")
	c.Port = envIntOr("DB_PORT", c.Port, 5432)
	c.User = envOr("DB_USER", c.User, "postgres")
	c.Password = envOr("DB_PASSWORD", c.Password, "postgres")
	c.Database = envOr("DB_NAME", c.Database, "finquest")
	c.SSLMode = envOr("DB_SSLMODE", c.SSLMode, "disable")
	return c
}

// NewConfigFromEnv resolves settings from the environment alone.
func NewConfigFromEnv() Config {
	return Config{}.Resolve()
}

// DSN returns the Postgres connection URL. A DATABASE_URL environment
// variable, when set, wins over the assembled settings.
func (c Config) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.url(c.Password)
}

// Redacted returns the connection URL with the password masked, safe to
// log.
func (c Config) Redacted() string {
	return c.url("***")
}

func (c Config) url(password string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func envOr(key, current, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if current != "" {
		return current
	}
	return fallback
}

func envIntOr(key string, current, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if current != 0 {
		return current
	}
	return fallback
}
