package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_USER", "shop")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("DB_NAME", "shop")
		t.Setenv("DB_PORT", "")
		t.Setenv("PORT", "")
		t.Setenv("SESSION_TTL", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "8080", cfg.Port)
		require.Equal(t, DriverPostgres, cfg.DBDriver)
		require.Equal(t, "host=db user=shop password=pw dbname=shop port=5432 sslmode=disable", cfg.DatabaseURL)
		require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	})

	t.Run("SQLite", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_PATH", "/tmp/shop.db")
		t.Setenv("SESSION_TTL", "2h")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "/tmp/shop.db", cfg.DatabaseURL)
		require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("DB_DRIVER", "sqlite")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load()
		require.Error(t, err)
	})
}
