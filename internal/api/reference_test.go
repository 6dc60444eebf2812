package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealgram/backend/internal/testutil"
)

func TestListTags(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateTag(t, env.db, "dinner")
	testutil.CreateTag(t, env.db, "breakfast")

	w := env.do(t, "GET", "/api/v1/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tags []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0]["name"])
	assert.Equal(t, "dinner", tags[1]["name"])
}

func TestGetTag(t *testing.T) {
	env := newTestEnv(t)
	tag := testutil.CreateTag(t, env.db, "lunch")

	w := env.do(t, "GET", "/api/v1/tags/"+tag.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lunch", decodeJSON(t, w)["name"])

	w = env.do(t, "GET", "/api/v1/tags/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListIngredientsPrefixFilter(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateIngredient(t, env.db, "salt", "g")
	testutil.CreateIngredient(t, env.db, "salmon", "g")
	testutil.CreateIngredient(t, env.db, "pepper", "g")

	w := env.do(t, "GET", "/api/v1/ingredients?name=sal", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ingredients []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingredients))
	require.Len(t, ingredients, 2)
	assert.Equal(t, "salmon", ingredients[0]["name"])
	assert.Equal(t, "salt", ingredients[1]["name"])
}

func TestGetIngredient(t *testing.T) {
	env := newTestEnv(t)
	ing := testutil.CreateIngredient(t, env.db, "flour", "g")

	w := env.do(t, "GET", "/api/v1/ingredients/"+ing.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "flour", body["name"])
	assert.Equal(t, "g", body["measurement_unit"])

	w = env.do(t, "GET", "/api/v1/ingredients/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
