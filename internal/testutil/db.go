// Package testutil provides in-memory database fixtures for unit tests.
// Integration tests against real Postgres live in internal/integration.
package testutil

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mealgram/backend/config"
	"github.com/mealgram/backend/internal/database"
	"github.com/mealgram/backend/internal/models"
	"github.com/mealgram/backend/internal/service"
)

// TinyPNG is a valid 1x1 transparent PNG, base64-encoded.
const TinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

// NewDB opens an isolated in-memory sqlite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared in-memory database so every pooled connection sees
	// the same data, isolated per test by the random name.
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

// NewConfig returns a Config suitable for tests, with media written to a
// temporary directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		ServerPort:        "8080",
		ServerHost:        "localhost",
		BaseURL:           "http://localhost:8080",
		JWTSecret:         "test-secret",
		MediaDir:          t.TempDir(),
		PageSize:          config.DefaultPageSize,
		MaxCookingTime:    config.DefaultMaxCookingTime,
		MaxIngredientAmnt: config.DefaultMaxAmount,
	}
}

// NewLogger returns a logger that discards all output.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewImageService builds an ImageService backed by a temporary directory.
func NewImageService(t *testing.T, cfg *config.Config) *service.ImageService {
	t.Helper()

	images, err := service.NewImageService(context.Background(), cfg, NewLogger())
	require.NoError(t, err)
	return images
}

// CreateUser inserts a user with a hashed password.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hashed),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTag inserts a tag with a slug derived from the name.
func CreateTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()

	tag := &models.Tag{Name: name, Slug: name}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// CreateIngredient inserts an ingredient.
func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()

	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}
