package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string
	// BaseURL is the externally visible origin, used to build short links
	// and media URLs.
	BaseURL string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (optional; empty RedisAddr disables the
	// short-link cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret string

	// Media storage
	MediaDir string
	S3Bucket string

	// API tunables
	PageSize          int
	MaxCookingTime    int
	MaxIngredientAmnt int
}

// Defaults mirroring the reference data bounds.
const (
	DefaultPageSize       = 6
	DefaultMaxCookingTime = 32000
	DefaultMaxAmount      = 32000
)

// Load creates a Config from environment variables, reading a .env file
// first when one is present.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "mealgram"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "mealgram"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		MediaDir:          getEnv("MEDIA_DIR", "media"),
		S3Bucket:          os.Getenv("S3_BUCKET_NAME"),
		PageSize:          getEnvInt("PAGE_SIZE", DefaultPageSize),
		MaxCookingTime:    getEnvInt("MAX_COOKING_TIME", DefaultMaxCookingTime),
		MaxIngredientAmnt: getEnvInt("MAX_INGREDIENT_AMOUNT", DefaultMaxAmount),
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		n, err := strconv.Atoi(redisDB)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", redisDB, err)
		}
		cfg.RedisDB = n
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
