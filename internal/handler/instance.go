package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/controla/backend/internal/model"
	"github.com/controla/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type instanceService interface {
	ListInstances(ctx context.Context) ([]model.InstanceSummary, error)
	GetInstance(ctx context.Context, externalID string) (*model.InstanceDetail, error)
	CreateInstance(ctx context.Context, req model.InstanceRequest) (*model.InstanceDetail, error)
	UpdateInstance(ctx context.Context, externalID string, req model.InstanceRequest) (*model.InstanceDetail, error)
	DeleteInstance(ctx context.Context, externalID string) error
	GetWorkflows(ctx context.Context, externalID string) ([]model.WorkflowSummary, error)
	GetFailedEvents(ctx context.Context, externalID string, limit int) ([]model.NormalizedEvent, error)
	GetErrorPatterns(ctx context.Context, externalID, rangeKey string) ([]model.ErrorPattern, error)
}

type InstanceHandler struct {
	svc instanceService
}

func NewInstanceHandler(svc instanceService) *InstanceHandler {
	return &InstanceHandler{svc: svc}
}

// ListInstances godoc
// @Summary List instances
// @Description Refreshes the status of every instance of the caller's tenant before answering.
// @Tags instances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.InstanceListResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/instances [get]
func (h *InstanceHandler) ListInstances(c *gin.Context) {
	instances, err := h.svc.ListInstances(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if instances == nil {
		instances = []model.InstanceSummary{}
	}
	c.JSON(http.StatusOK, model.InstanceListResponse{Status: "success", Data: instances})
}

// GetInstance godoc
// @Summary Get an instance
// @Tags instances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instance ID"
// @Success 200 {object} model.InstanceDetailEnvelope
// @Failure 404,500 {object} model.ErrorResponse
// @Router /api/v1/instances/{id} [get]
func (h *InstanceHandler) GetInstance(c *gin.Context) {
	detail, err := h.svc.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.InstanceDetailEnvelope{Status: "success", Data: detail})
}

// CreateInstance godoc
// @Summary Register an instance
// @Tags instances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.InstanceRequest true "Instance"
// @Success 201 {object} model.InstanceDetailEnvelope
// @Failure 400,403,500 {object} model.ErrorResponse
// @Router /api/v1/instances [post]
func (h *InstanceHandler) CreateInstance(c *gin.Context) {
	var req model.InstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	detail, err := h.svc.CreateInstance(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.InstanceDetailEnvelope{Status: "success", Data: detail})
}

// UpdateInstance godoc
// @Summary Update an instance
// @Description An empty apiKey keeps the stored credential.
// @Tags instances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instance ID"
// @Param request body model.InstanceRequest true "Instance"
// @Success 200 {object} model.InstanceDetailEnvelope
// @Failure 400,404,500 {object} model.ErrorResponse
// @Router /api/v1/instances/{id} [put]
func (h *InstanceHandler) UpdateInstance(c *gin.Context) {
	var req model.InstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request"})
		return
	}
	detail, err := h.svc.UpdateInstance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.InstanceDetailEnvelope{Status: "success", Data: detail})
}

// DeleteInstance godoc
// @Summary Delete an instance
// @Tags instances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instance ID"
// @Success 200 {object} model.StatusResponse
// @Failure 404,500 {object} model.ErrorResponse
// @Router /api/v1/instances/{id} [delete]
func (h *InstanceHandler) DeleteInstance(c *gin.Context) {
	if err := h.svc.DeleteInstance(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "success"})
}

// GetWorkflows godoc
// @Summary List workflows of an instance
// @Tags instances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instance ID"
// @Success 200 {object} model.WorkflowListResponse
// @Failure 404,500 {object} model.ErrorResponse
// @Router /api/v1/instances/{id}/workflows [get]
func (h *InstanceHandler) GetWorkflows(c *gin.Context) {
	workflows, err := h.svc.GetWorkflows(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if workflows == nil {
		workflows = []model.WorkflowSummary{}
	}
	c.JSON(http.StatusOK, model.WorkflowListResponse{Status: "success", Data: workflows})
}

// GetEvents godoc
// @Summary Recent failed executions of an instance
// @Tags instances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instance ID"
// @Param limit query int false "Max events (default 50)"
// @Success 200 {object} model.EventListResponse
// @Failure 400,404,500 {object} model.ErrorResponse
// @Router /api/v1/instances/{id}/events [get]
func (h *InstanceHandler) GetEvents(c *gin.Context) {
	limit := service.DefaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid limit"})
			return
		}
		limit = parsed
	}

	events, err := h.svc.GetFailedEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if events == nil {
		events = []model.NormalizedEvent{}
	}
	c.JSON(http.StatusOK, model.EventListResponse{Status: "success", Data: events})
}

// GetErrorPatterns godoc
// @Summary Failed executions grouped by message
// @Description range is one of 1d, 14d, 1m, 6m, 12m. Unknown values fall back to 14d.
// @Tags instances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Instance ID"
// @Param range query string false "Lookback window (default 14d)"
// @Success 200 {object} model.ErrorPatternListResponse
// @Failure 404,500 {object} model.ErrorResponse
// @Router /api/v1/instances/{id}/error-patterns [get]
func (h *InstanceHandler) GetErrorPatterns(c *gin.Context) {
	rangeKey := service.NormalizeRange(c.Query("range"))
	patterns, err := h.svc.GetErrorPatterns(c.Request.Context(), c.Param("id"), rangeKey)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if patterns == nil {
		patterns = []model.ErrorPattern{}
	}
	c.JSON(http.StatusOK, model.ErrorPatternListResponse{Status: "success", Range: rangeKey, Data: patterns})
}
