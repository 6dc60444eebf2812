package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealgram/backend/internal/models"
	"github.com/mealgram/backend/internal/service"
	"github.com/mealgram/backend/internal/testutil"
)

func newCollectionFixture(t *testing.T) (*recipeFixture, *service.CollectionService, *models.User, uuid.UUID) {
	f := newRecipeFixture(t)
	collections := service.NewCollectionService(f.db, f.recipes)

	created, err := f.recipes.Create(context.Background(), f.author.ID, f.validInput())
	require.NoError(t, err)

	viewer := testutil.CreateUser(t, f.db, "viewer")
	return f, collections, viewer, created.ID
}

func TestFavoriteAddTwiceConflicts(t *testing.T) {
	_, collections, viewer, recipeID := newCollectionFixture(t)
	ctx := context.Background()

	short, err := collections.AddFavorite(ctx, viewer.ID, recipeID)
	require.NoError(t, err)
	assert.Equal(t, recipeID, short.ID)
	assert.Equal(t, "Scrambled eggs", short.Name)
	assert.Equal(t, 10, short.CookingTime)

	_, err = collections.AddFavorite(ctx, viewer.ID, recipeID)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestFavoriteRemove(t *testing.T) {
	f, collections, viewer, recipeID := newCollectionFixture(t)
	ctx := context.Background()

	// Removing before adding is NotFound.
	err := collections.RemoveFavorite(ctx, viewer.ID, recipeID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = collections.AddFavorite(ctx, viewer.ID, recipeID)
	require.NoError(t, err)

	require.NoError(t, collections.RemoveFavorite(ctx, viewer.ID, recipeID))

	var rows int64
	require.NoError(t, f.db.Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", viewer.ID, recipeID).
		Count(&rows).Error)
	assert.EqualValues(t, 0, rows)

	// Second removal is NotFound again.
	err = collections.RemoveFavorite(ctx, viewer.ID, recipeID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCartAddAndRemove(t *testing.T) {
	_, collections, viewer, recipeID := newCollectionFixture(t)
	ctx := context.Background()

	short, err := collections.AddToCart(ctx, viewer.ID, recipeID)
	require.NoError(t, err)
	assert.Equal(t, recipeID, short.ID)

	_, err = collections.AddToCart(ctx, viewer.ID, recipeID)
	assert.ErrorIs(t, err, service.ErrConflict)

	require.NoError(t, collections.RemoveFromCart(ctx, viewer.ID, recipeID))
	err = collections.RemoveFromCart(ctx, viewer.ID, recipeID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCollectionUnknownRecipe(t *testing.T) {
	_, collections, viewer, _ := newCollectionFixture(t)
	ctx := context.Background()

	_, err := collections.AddFavorite(ctx, viewer.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	err = collections.RemoveFromCart(ctx, viewer.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
