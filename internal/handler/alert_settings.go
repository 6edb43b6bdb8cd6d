package handler

import (
	"context"
	"net/http"

	"github.com/controla/backend/internal/model"
	"github.com/gin-gonic/gin"
)

type alertSettingsService interface {
	GetSettings(ctx context.Context) (model.AlertSettingsPayload, error)
	UpdateSettings(ctx context.Context, payload model.AlertSettingsPayload) (model.AlertSettingsPayload, error)
}

type AlertSettingsHandler struct {
	svc alertSettingsService
}

func NewAlertSettingsHandler(svc alertSettingsService) *AlertSettingsHandler {
	return &AlertSettingsHandler{svc: svc}
}

// GetSettings godoc
// @Summary Get alert settings
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AlertSettingsPayload
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/settings [get]
func (h *AlertSettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.svc.GetSettings(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Replace alert settings
// @Description Enabling workflowError or invalidApiKey needs a license that includes them.
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.AlertSettingsPayload true "Alert settings"
// @Success 200 {object} model.AlertSettingsPayload
// @Failure 400,403,500 {object} model.ErrorResponse
// @Router /api/v1/alerts/settings [put]
func (h *AlertSettingsHandler) UpdateSettings(c *gin.Context) {
	var payload model.AlertSettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	saved, err := h.svc.UpdateSettings(c.Request.Context(), payload)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
