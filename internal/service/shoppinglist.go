package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealgram/backend/internal/models"
)

// ShoppingListService renders the aggregated shopping list for a user's
// cart. The same ingredient appearing in several recipes is merged into one
// line with the amounts summed; totals are ordering-independent.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// ShoppingListLine is one aggregated ingredient group.
type ShoppingListLine struct {
	Name            string
	MeasurementUnit string
	Total           int
}

// Aggregate sums ingredient amounts across every recipe in the user's
// cart, grouped by (name, measurement unit) and ordered by name.
func (s *ShoppingListService) Aggregate(ctx context.Context, userID uuid.UUID) ([]ShoppingListLine, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ShoppingCartItem{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, validationErr("shopping_cart", "shopping cart is empty, nothing to export")
	}

	var lines []ShoppingListLine
	err := s.db.WithContext(ctx).Model(&models.IngredientInRecipe{}).
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Render produces the downloadable text report for a user's cart.
func (s *ShoppingListService) Render(ctx context.Context, userID uuid.UUID) (string, error) {
	lines, err := s.Aggregate(ctx, userID)
	if err != nil {
		return "", err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}

	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping list for: %s\n\n", user.FullName())
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format("2006-01-02"))
	for _, line := range lines {
		fmt.Fprintf(&b, "- %s (%s) - %d\n", line.Name, line.MeasurementUnit, line.Total)
	}
	fmt.Fprintf(&b, "\nMealgram (%d)\n", now.Year())

	return b.String(), nil
}
