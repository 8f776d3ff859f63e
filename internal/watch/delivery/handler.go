package delivery

import (
	"context"
	"errors"
	"net/http"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"github.com/gin-gonic/gin"
)

type Watcher interface {
	Start(ctx context.Context, accountID string) (*maildomain.WatchResult, error)
	Stop(ctx context.Context, accountID string) error
}

type WatchHandler struct {
	watcher Watcher
}

func NewWatchHandler(watcher Watcher) *WatchHandler {
	return &WatchHandler{watcher: watcher}
}

// POST /api/accounts/:id/watch
func (h *WatchHandler) StartWatch(c *gin.Context) {
	res, err := h.watcher.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history_id": res.HistoryID,
		"expiration": res.Expiration,
	})
}

// DELETE /api/accounts/:id/watch
func (h *WatchHandler) StopWatch(c *gin.Context) {
	if err := h.watcher.Stop(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "watch stopped"})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, accountdomain.ErrAuth), errors.Is(err, maildomain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
