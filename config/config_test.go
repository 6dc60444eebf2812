package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BASE_URL", "https://mealgram.example")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("PAGE_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "https://mealgram.example", cfg.BaseURL)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "secret", cfg.DBPassword)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	for _, key := range []string{"SERVER_PORT", "BASE_URL", "DB_HOST", "REDIS_ADDR", "PAGE_SIZE", "MAX_COOKING_TIME"} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, DefaultMaxCookingTime, cfg.MaxCookingTime)
	assert.Equal(t, DefaultMaxAmount, cfg.MaxIngredientAmnt)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "mealgram",
		DBPassword: "secret",
		DBName:     "mealgram",
		DBSSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=mealgram password=secret dbname=mealgram sslmode=disable",
		cfg.DSN())
}

func TestValidateBounds(t *testing.T) {
	cfg := &Config{
		ServerPort:        "8080",
		DBHost:            "localhost",
		DBUser:            "mealgram",
		DBName:            "mealgram",
		JWTSecret:         "test-secret",
		PageSize:          0,
		MaxCookingTime:    DefaultMaxCookingTime,
		MaxIngredientAmnt: DefaultMaxAmount,
	}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "PAGE_SIZE")
}
