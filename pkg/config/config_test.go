package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, "25", cfg.MarkupPercent().String())
	assert.Contains(t, cfg.DSN(), "dbname=pharmacy_pos")
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, _, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadDecimal(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TAX_RATE_PERCENT", "eleven")

	_, _, err := Load()
	require.Error(t, err)
}

func TestDatabaseURLWins(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@db:5432/x"}
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
}
