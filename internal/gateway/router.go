package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/auth"
)

// RegisterRoutes mounts the API under /api. A nil jwtManager leaves the
// routes unauthenticated.
func RegisterRoutes(router *gin.Engine, h *Handler, stream *ProgressStream, jwtManager *auth.JWTManager) {
	api := router.Group("/api")

	// Health check (public) - keep for backward compatibility
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	protected := api.Group("")
	if jwtManager != nil {
		protected.Use(auth.RequireAuth(jwtManager), auth.RequireRole(auth.RoleArchitect))
	}

	protected.POST("/architect", h.RunStage)
	protected.POST("/roles", h.SelectRoles)
	protected.POST("/book-generations", h.StartBookGeneration)
	protected.GET("/book-generations/:id", h.GetBookGeneration)
	protected.GET("/ws/book-generations/:id", stream.StreamBookGeneration)
}
