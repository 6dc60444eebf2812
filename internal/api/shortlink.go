package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mealgram/backend/internal/service"
)

// ShortLinkHandler redirects short tokens to their canonical recipe URLs.
type ShortLinkHandler struct {
	recipes *service.RecipeService
}

func NewShortLinkHandler(recipes *service.RecipeService) *ShortLinkHandler {
	return &ShortLinkHandler{recipes: recipes}
}

// RegisterRoutes attaches the redirect endpoint at the engine root, outside
// the versioned API prefix.
func (h *ShortLinkHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/s/:code", h.Redirect)
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	recipeID, err := h.recipes.ResolveShortCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/recipes/"+recipeID.String()+"/")
}
