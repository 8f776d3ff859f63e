package delivery

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/ingest/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 50

// Ingestor is the part of the orchestrator the HTTP layer drives.
type Ingestor interface {
	Dispatch(ctx context.Context, n maildomain.ChangeNotification, source historydomain.Source) error
	Poll(ctx context.Context, accountID string, cursor uint64) (*domain.BatchSummary, error)
}

type EnvelopeDecoder interface {
	Decode(envelope []byte) (*maildomain.ChangeNotification, error)
}

type HistoryLister interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*historydomain.HistoryRecord, error)
}

type IngestHandler struct {
	ingestor Ingestor
	decoder  EnvelopeDecoder
	history  HistoryLister
}

func NewIngestHandler(ingestor Ingestor, decoder EnvelopeDecoder, history HistoryLister) *IngestHandler {
	return &IngestHandler{ingestor: ingestor, decoder: decoder, history: history}
}

// POST /api/webhooks/gmail
// Receives a Pub/Sub push envelope and queues the batch. The batch outcome is never returned.
func (h *IngestHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid notification"})
		return
	}

	n, err := h.decoder.Decode(body)
	if err != nil {
		log.Printf("[Webhook] rejected notification: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid notification"})
		return
	}

	err = h.ingestor.Dispatch(c.Request.Context(), *n, historydomain.SourceHook)
	switch {
	case err == nil:
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	case errors.Is(err, domain.ErrQueueFull):
		log.Printf("[Webhook] queue full, dropping %s cursor %d", n.AccountIdentifier, n.ChangeCursor)
	default:
		log.Printf("[Webhook] dispatch failed for %s: %v", n.AccountIdentifier, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

type pollRequest struct {
	HistoryID uint64 `json:"history_id"`
}

// POST /api/accounts/:id/poll
func (h *IngestHandler) Poll(c *gin.Context) {
	var req pollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	summary, err := h.ingestor.Poll(c.Request.Context(), c.Param("id"), req.HistoryID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, summary)
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoCursor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, maildomain.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "summary": summary})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GET /api/accounts/:id/history?limit=N
func (h *IngestHandler) ListHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.history.ListByAccount(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}
