package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealgram/backend/internal/models"
	"github.com/mealgram/backend/internal/types"
)

// CollectionService handles the per-user favorite and shopping-cart sets.
// Adds are idempotency-checked, not idempotent: repeating an add is a
// Conflict, not a no-op. The unique (user, recipe) constraint remains the
// authority under concurrent adds; the existence query is only a pre-flight
// check for a friendlier error.
type CollectionService struct {
	db      *gorm.DB
	recipes *RecipeService
}

func NewCollectionService(db *gorm.DB, recipes *RecipeService) *CollectionService {
	return &CollectionService{db: db, recipes: recipes}
}

// AddFavorite inserts a (user, recipe) favorite pair and returns the short
// recipe projection.
func (s *CollectionService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeShort, error) {
	return s.add(ctx, userID, recipeID, "favorites", func() error {
		return s.db.WithContext(ctx).Create(&models.Favorite{UserID: userID, RecipeID: recipeID}).Error
	}, func() (int64, error) {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.Favorite{}).
			Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&n).Error
		return n, err
	})
}

// RemoveFavorite deletes a favorite pair; a missing pair is NotFound.
func (s *CollectionService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.remove(ctx, recipeID, "favorites", func() (int64, error) {
		res := s.db.WithContext(ctx).
			Where("user_id = ? AND recipe_id = ?", userID, recipeID).
			Delete(&models.Favorite{})
		return res.RowsAffected, res.Error
	})
}

// AddToCart inserts a (user, recipe) shopping-cart pair and returns the
// short recipe projection.
func (s *CollectionService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeShort, error) {
	return s.add(ctx, userID, recipeID, "shopping cart", func() error {
		return s.db.WithContext(ctx).Create(&models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}).Error
	}, func() (int64, error) {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.ShoppingCartItem{}).
			Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&n).Error
		return n, err
	})
}

// RemoveFromCart deletes a shopping-cart pair; a missing pair is NotFound.
func (s *CollectionService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.remove(ctx, recipeID, "shopping cart", func() (int64, error) {
		res := s.db.WithContext(ctx).
			Where("user_id = ? AND recipe_id = ?", userID, recipeID).
			Delete(&models.ShoppingCartItem{})
		return res.RowsAffected, res.Error
	})
}

func (s *CollectionService) add(ctx context.Context, userID, recipeID uuid.UUID, name string, insert func() error, exists func() (int64, error)) (*types.RecipeShort, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
		}
		return nil, err
	}

	if n, err := exists(); err != nil {
		return nil, err
	} else if n > 0 {
		return nil, fmt.Errorf("%w: recipe already in %s", ErrConflict, name)
	}

	if err := insert(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: recipe already in %s", ErrConflict, name)
		}
		return nil, err
	}

	short := s.recipes.Short(&recipe)
	return &short, nil
}

func (s *CollectionService) remove(ctx context.Context, recipeID uuid.UUID, name string, del func() (int64, error)) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id").First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
		}
		return err
	}

	affected, err := del()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: recipe not in %s", ErrNotFound, name)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint rejection
// from either supported store.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
