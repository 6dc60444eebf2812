package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealgram/backend/internal/models"
	"github.com/mealgram/backend/internal/types"
)

// SubscriptionService maintains the directed follower graph between users.
// Self-subscription is forbidden and edges are unique.
type SubscriptionService struct {
	db      *gorm.DB
	recipes *RecipeService
}

func NewSubscriptionService(db *gorm.DB, recipes *RecipeService) *SubscriptionService {
	return &SubscriptionService{db: db, recipes: recipes}
}

// Subscribe adds a follower edge and returns the followed profile with its
// recipes, truncated to recipesLimit when non-negative.
func (s *SubscriptionService) Subscribe(ctx context.Context, followerID, targetID uuid.UUID, recipesLimit int) (*types.SubscriptionView, error) {
	var target models.User
	if err := s.db.WithContext(ctx).First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, targetID)
		}
		return nil, err
	}

	if followerID == targetID {
		return nil, fmt.Errorf("%w: cannot subscribe to yourself", ErrConflict)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("follower_id = ? AND followed_id = ?", followerID, targetID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: already subscribed to this user", ErrConflict)
	}

	edge := models.Subscription{FollowerID: followerID, FollowedID: targetID}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: already subscribed to this user", ErrConflict)
		}
		return nil, err
	}

	return s.buildView(ctx, &target, true, recipesLimit)
}

// Unsubscribe removes a follower edge; a missing edge is NotFound.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, followerID, targetID uuid.UUID) error {
	var target models.User
	if err := s.db.WithContext(ctx).Select("id").First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, targetID)
		}
		return err
	}

	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, targetID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: not subscribed to this user", ErrNotFound)
	}
	return nil
}

// List returns a page of profiles the user follows, each annotated with a
// recipe count and a recipesLimit-truncated list of recipe summaries.
func (s *SubscriptionService) List(ctx context.Context, followerID uuid.UUID, offset, limit, recipesLimit int) ([]types.SubscriptionView, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.followed_id = users.id").
		Where("subscriptions.follower_id = ?", followerID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var followed []models.User
	if err := base.Session(&gorm.Session{}).Order("subscriptions.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&followed).Error; err != nil {
		return nil, 0, err
	}

	views := make([]types.SubscriptionView, 0, len(followed))
	for i := range followed {
		view, err := s.buildView(ctx, &followed[i], true, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, total, nil
}

func (s *SubscriptionService) buildView(ctx context.Context, user *models.User, isSubscribed bool, recipesLimit int) (*types.SubscriptionView, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("author_id = ?", user.ID).
		Order("created_at DESC")
	if recipesLimit >= 0 {
		query = query.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	shorts := make([]types.RecipeShort, 0, len(recipes))
	for i := range recipes {
		shorts = append(shorts, s.recipes.Short(&recipes[i]))
	}

	return &types.SubscriptionView{
		ProfileView: types.ProfileView{
			ID:           user.ID,
			Email:        user.Email,
			Username:     user.Username,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			IsSubscribed: isSubscribed,
			Avatar:       s.recipes.imageURL(user.AvatarPath),
		},
		RecipesCount: count,
		Recipes:      shorts,
	}, nil
}
