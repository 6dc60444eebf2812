package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mealgram/backend/internal/models"
	"github.com/mealgram/backend/internal/types"
)

// ProfileService handles user profile reads and avatar management.
type ProfileService struct {
	db      *gorm.DB
	images  *ImageService
	recipes *RecipeService
	logger  *logrus.Logger
}

func NewProfileService(db *gorm.DB, images *ImageService, recipes *RecipeService, logger *logrus.Logger) *ProfileService {
	return &ProfileService{db: db, images: images, recipes: recipes, logger: logger}
}

// Get returns a user's public profile with the viewer-relative
// subscription flag.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID, viewerID *uuid.UUID) (*types.ProfileView, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}

	view := s.view(&user)
	if viewerID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("follower_id = ? AND followed_id = ?", *viewerID, userID).
			Count(&n).Error; err != nil {
			return nil, err
		}
		view.IsSubscribed = n > 0
	}
	return &view, nil
}

// List returns a page of user profiles ordered by registration time.
func (s *ProfileService) List(ctx context.Context, viewerID *uuid.UUID, offset, limit int) ([]types.ProfileView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	subscribed := map[uuid.UUID]bool{}
	if viewerID != nil && len(users) > 0 {
		ids := make([]uuid.UUID, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		var followedIDs []uuid.UUID
		if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("follower_id = ? AND followed_id IN ?", *viewerID, ids).
			Pluck("followed_id", &followedIDs).Error; err != nil {
			return nil, 0, err
		}
		for _, id := range followedIDs {
			subscribed[id] = true
		}
	}

	views := make([]types.ProfileView, 0, len(users))
	for i := range users {
		view := s.view(&users[i])
		view.IsSubscribed = subscribed[users[i].ID]
		views = append(views, view)
	}
	return views, total, nil
}

// SetAvatar stores a base64-inlined avatar image and returns its URL.
func (s *ProfileService) SetAvatar(ctx context.Context, userID uuid.UUID, payload string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}

	path, err := s.images.SaveBase64(ctx, "avatars", payload)
	if err != nil {
		return "", err
	}

	old := user.AvatarPath
	if err := s.db.WithContext(ctx).Model(&user).Update("avatar_path", path).Error; err != nil {
		return "", err
	}

	if old != "" {
		if err := s.images.Delete(ctx, old); err != nil {
			s.logger.WithError(err).Warn("failed to remove replaced avatar")
		}
	}

	return s.recipes.imageURL(path), nil
}

// ClearAvatar removes the user's avatar reference and the stored file.
func (s *ProfileService) ClearAvatar(ctx context.Context, userID uuid.UUID) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if user.AvatarPath == "" {
		return nil
	}

	old := user.AvatarPath
	if err := s.db.WithContext(ctx).Model(&user).Update("avatar_path", "").Error; err != nil {
		return err
	}

	if err := s.images.Delete(ctx, old); err != nil {
		s.logger.WithError(err).Warn("failed to remove cleared avatar")
	}
	return nil
}

func (s *ProfileService) view(user *models.User) types.ProfileView {
	return types.ProfileView{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    s.recipes.imageURL(user.AvatarPath),
	}
}
