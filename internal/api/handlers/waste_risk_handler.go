package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/andresuchdata/ecoagent/backend-go/internal/wasterisk"
	"github.com/gin-gonic/gin"
)

type WasteRiskHandler struct {
	service *service.WasteRiskService
}

func NewWasteRiskHandler(service *service.WasteRiskService) *WasteRiskHandler {
	return &WasteRiskHandler{service: service}
}

// EvaluateAll scores every product in inventory.
func (h *WasteRiskHandler) EvaluateAll(c *gin.Context) {
	h.respond(c, h.service.Evaluate(c.Request.Context(), ""))
}

// Evaluate scores a single product.
func (h *WasteRiskHandler) Evaluate(c *gin.Context) {
	productID := strings.TrimSpace(c.Param("product_id"))
	if productID == "" {
		badRequest(c, "product_id is required")
		return
	}
	h.respond(c, h.service.Evaluate(c.Request.Context(), productID))
}

func (h *WasteRiskHandler) respond(c *gin.Context, res wasterisk.Result) {
	code := http.StatusOK
	if res.Status == wasterisk.StatusError {
		code = http.StatusInternalServerError
		if res.Error != nil {
			code = StatusForKind(res.Error.Kind)
		}
	}
	c.JSON(code, res)
}
