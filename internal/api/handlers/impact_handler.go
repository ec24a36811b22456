package handlers

import (
	"net/http"

	"github.com/andresuchdata/ecoagent/backend-go/internal/api/middleware"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type ImpactHandler struct {
	service *service.ImpactService
}

func NewImpactHandler(service *service.ImpactService) *ImpactHandler {
	return &ImpactHandler{service: service}
}

type usageRequest struct {
	Entries []service.UsageEntry `json:"entries" binding:"required,min=1,dive"`
}

// RecordUsage records the token usage of one conversation turn.
func (h *ImpactHandler) RecordUsage(c *gin.Context) {
	var req usageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid usage payload: "+err.Error())
		return
	}

	report, err := h.service.Record(c.Request.Context(), middleware.GetRequestID(c), req.Entries)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}
