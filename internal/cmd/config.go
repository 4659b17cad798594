package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/finquest/finquest/internal/dbconfig"
)

// Config carries the optional file-based settings. Environment variables
// override anything set here.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database dbconfig.Config `yaml:"database"`
	NATS     struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
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

func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file is fine, env vars cover everything.
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

func (c *Config) port() string {
	return getEnv("PORT", orDefault(c.Server.Port, "8080"))
}

func (c *Config) natsURL() string {
	return getEnv("NATS_URL", orDefault(c.NATS.URL, "nats://localhost:4222"))
}

func (c *Config) redisAddr() string {
	return getEnv("REDIS_ADDR", orDefault(c.Redis.Addr, "localhost:6379"))
}

func (c *Config) redisPassword() string {
	return getEnv("REDIS_PASSWORD", c.Redis.Password)
}

func (c *Config) redisDB() int {
	return getEnvAsInt("REDIS_DB", c.Redis.DB)
}

func (c *Config) allowedOrigins() []string {
	if len(c.Server.AllowedOrigins) > 0 {
		return c.Server.AllowedOrigins
	}
	return []string{"*"}
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
