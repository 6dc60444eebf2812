package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealgram/backend/internal/testutil"
)

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "cook")

	w := env.do(t, "GET", "/api/v1/users/me", env.login(t, user), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cook", decodeJSON(t, w)["username"])

	w = env.do(t, "GET", "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "cook")

	w := env.do(t, "GET", "/api/v1/users/"+user.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "cook", body["username"])
	assert.Equal(t, false, body["is_subscribed"])
}

func TestListUsersEnvelope(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "alice")
	testutil.CreateUser(t, env.db, "bob")

	w := env.do(t, "GET", "/api/v1/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.Len(t, body["results"], 2)
}

func TestSubscribeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	follower := testutil.CreateUser(t, env.db, "follower")
	author := testutil.CreateUser(t, env.db, "author")
	token := env.login(t, follower)

	path := "/api/v1/users/" + author.ID.String() + "/subscribe"

	w := env.do(t, "POST", path, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["is_subscribed"])

	// Duplicate subscription is a client error.
	w = env.do(t, "POST", path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Self-subscription is never allowed.
	w = env.do(t, "POST", "/api/v1/users/"+follower.ID.String()+"/subscribe", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "DELETE", path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "DELETE", path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSubscriptionsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	follower := testutil.CreateUser(t, env.db, "follower")
	author := testutil.CreateUser(t, env.db, "author")
	token := env.login(t, follower)

	env.seedRecipe(t, author, "Bread")
	env.seedRecipe(t, author, "Bagel")
	env.seedRecipe(t, author, "Brioche")

	w := env.do(t, "POST", "/api/v1/users/"+author.ID.String()+"/subscribe", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "GET", "/api/v1/users/subscriptions?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.EqualValues(t, 1, body["count"])
	results := body["results"].([]interface{})
	require.Len(t, results, 1)

	entry := results[0].(map[string]interface{})
	assert.Equal(t, "author", entry["username"])
	assert.EqualValues(t, 3, entry["recipes_count"])
	assert.Len(t, entry["recipes"], 2)
}

func TestAvatarEndpoints(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "cook")
	token := env.login(t, user)

	w := env.do(t, "PUT", "/api/v1/users/me/avatar", token, map[string]interface{}{
		"avatar": testutil.TinyPNG,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeJSON(t, w)["avatar"])

	w = env.do(t, "GET", "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeJSON(t, w)["avatar"])

	w = env.do(t, "DELETE", "/api/v1/users/me/avatar", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "PUT", "/api/v1/users/me/avatar", token, map[string]interface{}{
		"avatar": "definitely-not-an-image",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
