package api

import (
	"net/http"

	accountDelivery "github.com/Alok-Gaur/mail-management-agent/internal/account/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	// Provider push endpoint; the short alias matches older watch registrations.
	r.POST("/mail-hook", h.ingestHandler.Webhook)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/webhooks/gmail", h.ingestHandler.Webhook)

		operator := accountDelivery.AuthMiddleware(h.app.OperatorTokens)

		// Account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(operator)
		{
			accounts.POST("", h.accountHandler.Register)
			accounts.GET("/:id", h.accountHandler.GetAccount)
			accounts.GET("/:id/settings", h.accountHandler.GetSettings)
			accounts.PUT("/:id/settings", h.accountHandler.UpdateSettings)
			accounts.PUT("/:id/labels", h.accountHandler.SetLabels)
			accounts.POST("/:id/fcm", h.accountHandler.RegisterFCMToken)
			accounts.DELETE("/:id/fcm/:token", h.accountHandler.UnregisterFCMToken)

			accounts.POST("/:id/poll", h.ingestHandler.Poll)
			accounts.GET("/:id/history", h.ingestHandler.ListHistory)

			accounts.POST("/:id/watch", h.watchHandler.StartWatch)
			accounts.DELETE("/:id/watch", h.watchHandler.StopWatch)
		}

		// Settings routes (protected) - Runtime configuration
		settings := api.Group("/settings")
		settings.Use(operator)
		{
			settings.GET("/ai", h.settingsHandler.GetAISettings)
			settings.PUT("/ai", h.settingsHandler.UpdateAISettings)
			settings.POST("/ai/test", h.settingsHandler.TestOllamaConnection)
		}
	}
}
