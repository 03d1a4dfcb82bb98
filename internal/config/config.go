package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the server.
type Config struct {
	Addr      string // HTTP listen address
	DBDSN     string // Postgres connection string (required)
	RedisAddr string // empty disables the cross-instance bridge
	JWTSecret string // required

	HistoryLimit int // messages replayed to a freshly joined socket
	SendBuffer   int // per-connection outbound queue size
}

// Load reads configuration from environment variables.
// A .env file is honoured in development if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:         getEnv("ADDR", ":8080"),
		DBDSN:        os.Getenv("DB_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		HistoryLimit: getEnvInt("HISTORY_LIMIT", 50),
		SendBuffer:   getEnvInt("SEND_BUFFER", 256),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
