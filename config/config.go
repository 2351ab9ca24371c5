// Package config reads the service configuration from the environment. A .env file
// in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string

	DBDriver    string
	DatabaseURL string // postgres DSN or sqlite file path

	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	APIKey string

	ReconcileHour   int
	ReconcileMinute int
	PruneInterval   time.Duration

	ShutdownTimeout time.Duration
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", DriverPostgres),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),
		BcryptCost:      getInt("BCRYPT_COST", 12),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		CacheTTL:        getDuration("CACHE_TTL", 5*time.Minute),
		APIKey:          os.Getenv("COST_API_KEY"),
		ReconcileHour:   getInt("RECONCILE_HOUR", 2),
		ReconcileMinute: getInt("RECONCILE_MINUTE", 0),
		PruneInterval:   getDuration("SESSION_PRUNE_INTERVAL", 15*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
	cfg.DatabaseURL = databaseURL(cfg.DBDriver)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ReconcileHour < 0 || c.ReconcileHour > 23 || c.ReconcileMinute < 0 || c.ReconcileMinute > 59 {
		return fmt.Errorf("invalid reconcile time %02d:%02d", c.ReconcileHour, c.ReconcileMinute)
	}
	return nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles a DSN from DB_* variables.
func databaseURL(driver string) string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if driver == DriverSQLite {
		return getEnv("DB_PATH", "digimarketstore.db")
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"), getEnv("DB_PORT", "5432"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
