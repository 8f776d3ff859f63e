package api

import (
	"net/http"

	accountDelivery "github.com/Alok-Gaur/mail-management-agent/internal/account/delivery"
	"github.com/Alok-Gaur/mail-management-agent/internal/app"
	ingestDelivery "github.com/Alok-Gaur/mail-management-agent/internal/ingest/delivery"
	watchDelivery "github.com/Alok-Gaur/mail-management-agent/internal/watch/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	app             *app.App
	accountHandler  *accountDelivery.AccountHandler
	ingestHandler   *ingestDelivery.IngestHandler
	watchHandler    *watchDelivery.WatchHandler
	settingsHandler *SettingsHandler
}

func NewHandler(a *app.App) *Handler {
	return &Handler{
		app:             a,
		accountHandler:  accountDelivery.NewAccountHandler(a.Directory, a.FCMTokens),
		ingestHandler:   ingestDelivery.NewIngestHandler(a.Orchestrator, a.Decoder, a.History),
		watchHandler:    watchDelivery.NewWatchHandler(a.Watch),
		settingsHandler: NewSettingsHandler(a.AISettings),
	}
}

// Engine returns the configured gin engine.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}
