package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mealgram/backend/internal/database"
	"github.com/mealgram/backend/internal/server"
	"github.com/mealgram/backend/internal/service"
	"github.com/mealgram/backend/internal/testutil"
)

// setupPostgres starts a disposable PostgreSQL container and returns a
// migrated gorm handle. Tests are skipped when docker is unavailable.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed, skipping container-based test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "mealgram",
				"POSTGRES_PASSWORD": "mealgram",
				"POSTGRES_DB":       "mealgram",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=mealgram password=mealgram dbname=mealgram sslmode=disable",
		host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRecipeLifecycle walks the whole flow against real Postgres:
// register, login, create a recipe, favorite it, fill the cart and
// download the aggregated shopping list.
func TestRecipeLifecycle(t *testing.T) {
	db := setupPostgres(t)

	gin.SetMode(gin.TestMode)
	cfg := testutil.NewConfig(t)
	images := testutil.NewImageService(t, cfg)
	srv := server.New(cfg, db, nil, images, testutil.NewLogger())
	router := srv.Router()

	tag := testutil.CreateTag(t, db, "dinner")
	salt := testutil.CreateIngredient(t, db, "salt", "g")
	pepper := testutil.CreateIngredient(t, db, "pepper", "g")

	w := doJSON(t, router, "POST", "/api/v1/auth/register", "", map[string]interface{}{
		"email":      "cook@example.com",
		"username":   "cook",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"password":   "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "cook@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	token := login["token"]
	require.NotEmpty(t, token)

	recipe := map[string]interface{}{
		"name":         "Scrambled eggs",
		"text":         "Whisk and fry gently.",
		"image":        testutil.TinyPNG,
		"cooking_time": 10,
		"tags":         []string{tag.ID.String()},
		"ingredients": []map[string]interface{}{
			{"id": salt.ID.String(), "amount": 5},
			{"id": pepper.ID.String(), "amount": 2},
		},
	}
	w = doJSON(t, router, "POST", "/api/v1/recipes", token, recipe)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	recipeID := created["id"].(string)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/favorite", token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/recipes/"+recipeID+"/shopping_cart", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "- pepper (g) - 2")
	assert.Contains(t, w.Body.String(), "- salt (g) - 5")

	// Viewer-relative flags survive the round trip through Postgres.
	w = doJSON(t, router, "GET", "/api/v1/recipes/"+recipeID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, true, view["is_favorited"])
	assert.Equal(t, true, view["is_in_shopping_cart"])
}

// TestUniquePairsEnforced verifies the composite unique indexes hold on
// real Postgres, where the service-level pre-checks are backed by actual
// constraints.
func TestUniquePairsEnforced(t *testing.T) {
	db := setupPostgres(t)

	cfg := testutil.NewConfig(t)
	images := testutil.NewImageService(t, cfg)
	logger := testutil.NewLogger()
	recipes := service.NewRecipeService(db, images, nil, cfg, logger)
	collections := service.NewCollectionService(db, recipes)

	author := testutil.CreateUser(t, db, "author")
	tag := testutil.CreateTag(t, db, "dinner")
	flour := testutil.CreateIngredient(t, db, "flour", "g")

	view, err := recipes.Create(context.Background(), author.ID, service.RecipeInput{
		Name:        "Bread",
		Text:        "Knead and bake.",
		Image:       testutil.TinyPNG,
		CookingTime: 90,
		TagIDs:      []uuid.UUID{tag.ID},
		Ingredients: []service.IngredientAmountInput{{ID: flour.ID, Amount: 500}},
	})
	require.NoError(t, err)

	_, err = collections.AddFavorite(context.Background(), author.ID, view.ID)
	require.NoError(t, err)
	_, err = collections.AddFavorite(context.Background(), author.ID, view.ID)
	assert.ErrorIs(t, err, service.ErrConflict)
}
