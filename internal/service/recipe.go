package service

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mealgram/backend/config"
	"github.com/mealgram/backend/internal/models"
	"github.com/mealgram/backend/internal/types"
)

const shortLinkCachePrefix = "shortlink:"

// RecipeService handles recipe aggregate writes and viewer-relative reads.
// A recipe's tag set and ingredient-amount set are always written together
// with the recipe row in one transaction.
type RecipeService struct {
	db             *gorm.DB
	images         *ImageService
	cache          *redis.Client
	baseURL        string
	maxCookingTime int
	maxAmount      int
	logger         *logrus.Logger
}

// NewRecipeService creates a new RecipeService instance. cache may be nil,
// which disables short-link caching.
func NewRecipeService(db *gorm.DB, images *ImageService, cache *redis.Client, cfg *config.Config, logger *logrus.Logger) *RecipeService {
	return &RecipeService{
		db:             db,
		images:         images,
		cache:          cache,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxCookingTime: cfg.MaxCookingTime,
		maxAmount:      cfg.MaxIngredientAmnt,
		logger:         logger,
	}
}

// IngredientAmountInput references an existing ingredient with a quantity.
type IngredientAmountInput struct {
	ID     uuid.UUID
	Amount int
}

// RecipeInput carries a full recipe payload. Tags and ingredients are
// always the complete desired sets; partial updates of either are rejected.
type RecipeInput struct {
	Name        string
	Text        string
	Image       string // base64, possibly with a data URI prefix
	CookingTime int
	TagIDs      []uuid.UUID
	Ingredients []IngredientAmountInput
}

// RecipeFilter restricts List results.
type RecipeFilter struct {
	AuthorID  *uuid.UUID
	TagSlugs  []string
	Favorited bool
	InCart    bool
}

// ShortCode derives the immutable short-link token for a recipe id.
func ShortCode(id uuid.UUID) string {
	sum := sha256.Sum256(id[:])
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:]))[:8]
}

// Create validates and persists a recipe with its tag and ingredient
// associations as one unit.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, input RecipeInput) (*types.RecipeView, error) {
	// Image first, then the rest of the payload.
	if _, _, err := s.images.DecodeBase64(input.Image); err != nil {
		return nil, err
	}
	tags, err := s.validate(ctx, &input)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.images.SaveBase64(ctx, "recipes", input.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		Name:        input.Name,
		Text:        input.Text,
		ImagePath:   imagePath,
		CookingTime: input.CookingTime,
		AuthorID:    &authorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe.ID = uuid.New()
		recipe.ShortCode = ShortCode(recipe.ID)
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		return s.replaceAssociations(tx, recipe.ID, tags, input.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	s.cacheShortCode(ctx, recipe.ShortCode, recipe.ID)

	return s.Get(ctx, recipe.ID, &authorID)
}

// Update revalidates the full payload and replaces the recipe's tag and
// ingredient sets inside one transaction. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID uuid.UUID, input RecipeInput) (*types.RecipeView, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
		}
		return nil, err
	}
	if recipe.AuthorID == nil || *recipe.AuthorID != actorID {
		return nil, fmt.Errorf("%w: only the author can edit this recipe", ErrForbidden)
	}

	// An omitted image keeps the stored one; a provided image must decode.
	if input.Image != "" {
		if _, _, err := s.images.DecodeBase64(input.Image); err != nil {
			return nil, err
		}
	}

	tags, err := s.validate(ctx, &input)
	if err != nil {
		return nil, err
	}

	oldImage := ""
	if input.Image != "" {
		imagePath, err := s.images.SaveBase64(ctx, "recipes", input.Image)
		if err != nil {
			return nil, err
		}
		oldImage = recipe.ImagePath
		recipe.ImagePath = imagePath
	}

	recipe.Name = input.Name
	recipe.Text = input.Text
	recipe.CookingTime = input.CookingTime

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(map[string]interface{}{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"image_path":   recipe.ImagePath,
			"cooking_time": recipe.CookingTime,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientInRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		return s.replaceAssociations(tx, recipe.ID, tags, input.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	if oldImage != "" && oldImage != recipe.ImagePath {
		if err := s.images.Delete(ctx, oldImage); err != nil {
			s.logger.WithError(err).Warn("failed to remove replaced recipe image")
		}
	}

	return s.Get(ctx, recipe.ID, &actorID)
}

// Delete removes a recipe and its association rows. Only the author may
// delete.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID uuid.UUID) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
		}
		return err
	}
	if recipe.AuthorID == nil || *recipe.AuthorID != actorID {
		return fmt.Errorf("%w: only the author can delete this recipe", ErrForbidden)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientInRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

// Get returns the full read representation of a recipe for a viewer.
func (s *RecipeService) Get(ctx context.Context, recipeID uuid.UUID, viewerID *uuid.UUID) (*types.RecipeView, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Preload("Author").
		First(&recipe, "id = ?", recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
		}
		return nil, err
	}

	views, err := s.buildViews(ctx, []models.Recipe{recipe}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns a page of recipes matching the filter, newest first.
func (s *RecipeService) List(ctx context.Context, filter RecipeFilter, viewerID *uuid.UUID, offset, limit int) ([]types.RecipeView, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		// Subquery rather than a join so a recipe matching several of the
		// requested tags is not counted twice.
		tagged := s.db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if filter.Favorited && viewerID != nil {
		query = query.Joins("JOIN favorites ON favorites.recipe_id = recipes.id AND favorites.user_id = ?", *viewerID)
	}
	if filter.InCart && viewerID != nil {
		query = query.Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = recipes.id AND shopping_cart_items.user_id = ?", *viewerID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := query.Session(&gorm.Session{}).
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Preload("Author").
		Order("recipes.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}

	views, err := s.buildViews(ctx, recipes, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetLink returns the absolute short URL for a recipe.
func (s *RecipeService) GetLink(ctx context.Context, recipeID uuid.UUID) (string, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "short_code").First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
		}
		return "", err
	}
	return s.baseURL + "/s/" + recipe.ShortCode, nil
}

// ResolveShortCode maps a short-link token back to its recipe id, checking
// the cache before the store.
func (s *RecipeService) ResolveShortCode(ctx context.Context, code string) (uuid.UUID, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, shortLinkCachePrefix+code).Result(); err == nil {
			if id, err := uuid.Parse(cached); err == nil {
				return id, nil
			}
		}
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id").First(&recipe, "short_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: short link %q", ErrNotFound, code)
		}
		return uuid.Nil, err
	}

	s.cacheShortCode(ctx, code, recipe.ID)
	return recipe.ID, nil
}

func (s *RecipeService) cacheShortCode(ctx context.Context, code string, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, shortLinkCachePrefix+code, id.String(), 24*time.Hour).Err(); err != nil {
		s.logger.WithError(err).Debug("short link cache write failed")
	}
}

// validate enforces the payload rules in a fixed order: ingredients
// non-empty, every ingredient exists, no duplicate ingredients, amounts in
// range, tags non-empty, no duplicate tags, every tag exists, then the
// scalar fields. It returns the resolved tags for the subsequent write.
func (s *RecipeService) validate(ctx context.Context, input *RecipeInput) ([]models.Tag, error) {
	if len(input.Ingredients) == 0 {
		return nil, validationErr("ingredients", "at least one ingredient is required")
	}

	seenIngredients := make(map[uuid.UUID]bool, len(input.Ingredients))
	ids := make([]uuid.UUID, 0, len(input.Ingredients))
	for _, ing := range input.Ingredients {
		if seenIngredients[ing.ID] {
			return nil, validationErr("ingredients", "duplicate ingredient %s", ing.ID)
		}
		seenIngredients[ing.ID] = true
		ids = append(ids, ing.ID)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return nil, err
	}
	if int(count) != len(ids) {
		return nil, fmt.Errorf("%w: unknown ingredient in payload", ErrNotFound)
	}

	for _, ing := range input.Ingredients {
		if ing.Amount < 1 || ing.Amount > s.maxAmount {
			return nil, validationErr("amount", "amount must be between 1 and %d", s.maxAmount)
		}
	}

	if len(input.TagIDs) == 0 {
		return nil, validationErr("tags", "at least one tag is required")
	}
	seenTags := make(map[uuid.UUID]bool, len(input.TagIDs))
	for _, id := range input.TagIDs {
		if seenTags[id] {
			return nil, validationErr("tags", "duplicate tag %s", id)
		}
		seenTags[id] = true
	}

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", input.TagIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(input.TagIDs) {
		return nil, validationErr("tags", "unknown tag in payload")
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, validationErr("name", "name is required")
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, validationErr("text", "text is required")
	}
	if input.CookingTime < 1 || input.CookingTime > s.maxCookingTime {
		return nil, validationErr("cooking_time", "cooking time must be between 1 and %d", s.maxCookingTime)
	}

	return tags, nil
}

// replaceAssociations inserts the tag links and ingredient-amount rows for
// a recipe. Callers delete any existing rows first, inside the same
// transaction.
func (s *RecipeService) replaceAssociations(tx *gorm.DB, recipeID uuid.UUID, tags []models.Tag, ingredients []IngredientAmountInput) error {
	tagRows := make([]models.RecipeTag, 0, len(tags))
	for _, tag := range tags {
		tagRows = append(tagRows, models.RecipeTag{RecipeID: recipeID, TagID: tag.ID})
	}
	if err := tx.Create(&tagRows).Error; err != nil {
		return err
	}

	ingredientRows := make([]models.IngredientInRecipe, 0, len(ingredients))
	for _, ing := range ingredients {
		ingredientRows = append(ingredientRows, models.IngredientInRecipe{
			RecipeID:     recipeID,
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		})
	}
	return tx.Create(&ingredientRows).Error
}

// buildViews assembles read representations, resolving the viewer-relative
// flags with batch lookups.
func (s *RecipeService) buildViews(ctx context.Context, recipes []models.Recipe, viewerID *uuid.UUID) ([]types.RecipeView, error) {
	recipeIDs := make([]uuid.UUID, 0, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		if r.AuthorID != nil {
			authorIDs = append(authorIDs, *r.AuthorID)
		}
	}

	favorited := map[uuid.UUID]bool{}
	inCart := map[uuid.UUID]bool{}
	subscribed := map[uuid.UUID]bool{}
	if viewerID != nil && len(recipeIDs) > 0 {
		var favIDs []uuid.UUID
		if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
			Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs).
			Pluck("recipe_id", &favIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range favIDs {
			favorited[id] = true
		}

		var cartIDs []uuid.UUID
		if err := s.db.WithContext(ctx).Model(&models.ShoppingCartItem{}).
			Where("user_id = ? AND recipe_id IN ?", *viewerID, recipeIDs).
			Pluck("recipe_id", &cartIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range cartIDs {
			inCart[id] = true
		}

		if len(authorIDs) > 0 {
			var followedIDs []uuid.UUID
			if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
				Where("follower_id = ? AND followed_id IN ?", *viewerID, authorIDs).
				Pluck("followed_id", &followedIDs).Error; err != nil {
				return nil, err
			}
			for _, id := range followedIDs {
				subscribed[id] = true
			}
		}
	}

	views := make([]types.RecipeView, 0, len(recipes))
	for _, r := range recipes {
		view := types.RecipeView{
			ID:               r.ID,
			Name:             r.Name,
			Text:             r.Text,
			Image:            s.imageURL(r.ImagePath),
			CookingTime:      r.CookingTime,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Tags:             make([]types.TagView, 0, len(r.Tags)),
			Ingredients:      make([]types.IngredientAmountView, 0, len(r.Ingredients)),
		}
		for _, tag := range r.Tags {
			view.Tags = append(view.Tags, types.TagView{ID: tag.ID, Name: tag.Name, Slug: tag.Slug})
		}
		for _, ing := range r.Ingredients {
			view.Ingredients = append(view.Ingredients, types.IngredientAmountView{
				ID:              ing.IngredientID,
				Name:            ing.Ingredient.Name,
				MeasurementUnit: ing.Ingredient.MeasurementUnit,
				Amount:          ing.Amount,
			})
		}
		if r.Author != nil {
			view.Author = types.ProfileView{
				ID:           r.Author.ID,
				Email:        r.Author.Email,
				Username:     r.Author.Username,
				FirstName:    r.Author.FirstName,
				LastName:     r.Author.LastName,
				IsSubscribed: subscribed[r.Author.ID],
				Avatar:       s.imageURL(r.Author.AvatarPath),
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Short returns the compact projection used by favorite and cart adds.
func (s *RecipeService) Short(recipe *models.Recipe) types.RecipeShort {
	return types.RecipeShort{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       s.imageURL(recipe.ImagePath),
		CookingTime: recipe.CookingTime,
	}
}

func (s *RecipeService) imageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.baseURL + "/media/" + path
}
