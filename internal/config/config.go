package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; preferred when set
	SQLitePath  string // fallback durable store
	InMemory    bool   // development only: volatile message store
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on configuration that cannot be durable.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/chat.db"),
		InMemory:    getEnv("IN_MEMORY_STORE", "false") == "true",
	}

	// In production, the message log must survive restarts
	if cfg.Env == "production" && cfg.InMemory {
		panic("IN_MEMORY_STORE is not allowed in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
