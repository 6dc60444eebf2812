package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mealgram/backend/internal/middleware"
	"github.com/mealgram/backend/internal/service"
)

type ProfileHandler struct {
	profiles      *service.ProfileService
	subscriptions *service.SubscriptionService
	validator     middleware.TokenValidator
	pageSize      int
}

func NewProfileHandler(profiles *service.ProfileService, subscriptions *service.SubscriptionService, validator middleware.TokenValidator, pageSize int) *ProfileHandler {
	return &ProfileHandler{
		profiles:      profiles,
		subscriptions: subscriptions,
		validator:     validator,
		pageSize:      pageSize,
	}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", middleware.OptionalAuthMiddleware(h.validator), h.ListUsers)
		users.GET("/me", middleware.AuthMiddleware(h.validator), h.Me)
		users.GET("/subscriptions", middleware.AuthMiddleware(h.validator), h.ListSubscriptions)
		users.GET("/:id", middleware.OptionalAuthMiddleware(h.validator), h.GetUser)
		users.PUT("/me/avatar", middleware.AuthMiddleware(h.validator), h.SetAvatar)
		users.DELETE("/me/avatar", middleware.AuthMiddleware(h.validator), h.ClearAvatar)
		users.POST("/:id/subscribe", middleware.AuthMiddleware(h.validator), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.AuthMiddleware(h.validator), h.Unsubscribe)
	}
}

func (h *ProfileHandler) ListUsers(c *gin.Context) {
	page := pageFromQuery(c, h.pageSize)
	viewer := viewerID(c)

	views, total, err := h.profiles.List(c.Request.Context(), viewer, page.Offset(), page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(total, views))
}

func (h *ProfileHandler) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	view, err := h.profiles.Get(c.Request.Context(), userID, viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	view, err := h.profiles.Get(c.Request.Context(), userID, &userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ProfileHandler) SetAvatar(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := h.profiles.SetAvatar(c.Request.Context(), userID, req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

func (h *ProfileHandler) ClearAvatar(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := h.profiles.ClearAvatar(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) Subscribe(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	view, err := h.subscriptions.Subscribe(c.Request.Context(), userID, targetID, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *ProfileHandler) Unsubscribe(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.subscriptions.Unsubscribe(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) ListSubscriptions(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	page := pageFromQuery(c, h.pageSize)

	views, total, err := h.subscriptions.List(c.Request.Context(), userID, page.Offset(), page.Limit, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(total, views))
}

// recipesLimit reads the optional recipe truncation parameter; a negative
// value means no truncation.
func recipesLimit(c *gin.Context) int {
	if v := c.Query("recipes_limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return -1
}

// viewerID returns a pointer to the authenticated viewer's id, or nil for
// anonymous requests.
func viewerID(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}
