package main

import (
	"log"
	"os"
	"strconv"
)

// Config holds the server settings read from the environment
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	StoreDriver string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LiveAddr      string

	StampRadiusMeters   float64
	SimplifyMeters      float64
	TerritoryQueryLimit int
	LeaderboardLimit    int
}

// Store drivers
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
	driverMemory   = "memory"
)

func loadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("GO_ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		StoreDriver: getEnv("STORE_DRIVER", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "territories.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		LiveAddr:      getEnv("LIVE_ADDR", ":9090"),

		StampRadiusMeters:   getEnvFloat("STAMP_RADIUS_METERS", 50),
		SimplifyMeters:      getEnvFloat("SIMPLIFY_METERS", 0),
		TerritoryQueryLimit: getEnvInt("TERRITORY_QUERY_LIMIT", 200),
		LeaderboardLimit:    getEnvInt("LEADERBOARD_LIMIT", 50),
	}

	if cfg.StoreDriver == "" {
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = driverPostgres
		} else {
			cfg.StoreDriver = driverMemory
		}
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return f
}
