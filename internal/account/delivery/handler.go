package delivery

import (
	"errors"
	"net/http"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/account/repository"
	"github.com/Alok-Gaur/mail-management-agent/internal/account/usecase"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	directory *usecase.Directory
	fcmTokens repository.FCMTokenRepository
}

func NewAccountHandler(directory *usecase.Directory, fcmTokens repository.FCMTokenRepository) *AccountHandler {
	return &AccountHandler{directory: directory, fcmTokens: fcmTokens}
}

// POST /api/accounts
func (h *AccountHandler) Register(c *gin.Context) {
	var req usecase.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.directory.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, account)
}

// GET /api/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.directory.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// GET /api/accounts/:id/settings
func (h *AccountHandler) GetSettings(c *gin.Context) {
	settings, labels, err := h.directory.Settings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "labels": labels})
}

type updateSettingsRequest struct {
	AutoLabel        *bool    `json:"auto_label"`
	AutoResponse     *bool    `json:"auto_response"`
	CreateDraft      *bool    `json:"create_draft"`
	ScheduleEvent    *bool    `json:"schedule_event"`
	GenerateReport   *bool    `json:"generate_report"`
	NeedsReplyLabels []string `json:"needs_reply_labels"`
	AlwaysReplyRoles []string `json:"always_reply_roles"`
}

// PUT /api/accounts/:id/settings
// Omitted fields keep their current value.
func (h *AccountHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	settings, _, err := h.directory.Settings(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	setBool(&settings.AutoLabel, req.AutoLabel)
	setBool(&settings.AutoResponse, req.AutoResponse)
	setBool(&settings.CreateDraft, req.CreateDraft)
	setBool(&settings.ScheduleEvent, req.ScheduleEvent)
	setBool(&settings.GenerateReport, req.GenerateReport)
	if req.NeedsReplyLabels != nil {
		settings.NeedsReplyLabels = req.NeedsReplyLabels
	}
	if req.AlwaysReplyRoles != nil {
		settings.AlwaysReplyRoles = req.AlwaysReplyRoles
	}

	if err := h.directory.UpdateSettings(ctx, settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

type setLabelsRequest struct {
	Labels []struct {
		Name        string `json:"label_name" binding:"required"`
		Description string `json:"label_description"`
	} `json:"labels" binding:"required"`
}

// PUT /api/accounts/:id/labels
func (h *AccountHandler) SetLabels(c *gin.Context) {
	var req setLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	labels := make([]accountdomain.Label, 0, len(req.Labels))
	for _, l := range req.Labels {
		labels = append(labels, accountdomain.Label{Name: l.Name, Description: l.Description})
	}

	ctx := c.Request.Context()
	accountID := c.Param("id")
	if err := h.directory.SetLabels(ctx, accountID, labels); err != nil {
		respondError(c, err)
		return
	}
	_, stored, err := h.directory.Settings(ctx, accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": stored})
}

type registerFCMRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// POST /api/accounts/:id/fcm
func (h *AccountHandler) RegisterFCMToken(c *gin.Context) {
	var req registerFCMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	accountID := c.Param("id")
	if _, err := h.directory.FindByID(ctx, accountID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.fcmTokens.SaveToken(ctx, accountID, req.Token, req.DeviceInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

// DELETE /api/accounts/:id/fcm/:token
func (h *AccountHandler) UnregisterFCMToken(c *gin.Context) {
	if err := h.fcmTokens.DeleteToken(c.Request.Context(), c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token unregistered"})
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, accountdomain.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
