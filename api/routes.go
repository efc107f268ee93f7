package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	internalapi "ai_lp_server/internal/api"
)

// RegisterRoutes sets up the API endpoints and groups them logically.
func RegisterRoutes(router *gin.Engine, h *internalapi.APIHandler) {

	apiGroup := router.Group("/api")
	{
		// AI content generation entry point
		apiGroup.POST("/generate", h.Generate)

		// Page content collaborators (thin file I/O)
		pagesGroup := apiGroup.Group("/pages")
		{
			pagesGroup.GET("", h.ListPages)
			pagesGroup.GET("/:filename", h.GetPageMeta)
			pagesGroup.PUT("/:filename", h.UpdatePageMeta)
		}

		// Operator surface
		apiGroup.PATCH("/prompt-config", h.UpdatePromptConfig)
	}

	// Basic health endpoint to check if the service is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
