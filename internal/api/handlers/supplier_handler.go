package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/andresuchdata/ecoagent/backend-go/internal/supplier"
	"github.com/gin-gonic/gin"
)

type SupplierHandler struct {
	service *service.SupplierService
}

func NewSupplierHandler(service *service.SupplierService) *SupplierHandler {
	return &SupplierHandler{service: service}
}

func (h *SupplierHandler) Score(c *gin.Context) {
	report, err := h.service.Score(c.Request.Context(), c.Param("supplier_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Rank orders the suppliers of ?product_id, optionally within ?location.
func (h *SupplierHandler) Rank(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("product_id"))
	location := strings.TrimSpace(c.Query("location"))

	ranking := h.service.Rank(c.Request.Context(), productID, location)
	code := http.StatusOK
	if ranking.Status == supplier.RankError {
		code = http.StatusUnprocessableEntity
		if ranking.Error != nil {
			code = StatusForKind(ranking.Error.Kind)
		}
	}
	c.JSON(code, ranking)
}

// Purchases lists the purchase history of a supplier, optionally for ?product_id.
func (h *SupplierHandler) Purchases(c *gin.Context) {
	supplierID := c.Param("supplier_id")
	rows, err := h.service.Purchases(c.Request.Context(), supplierID, strings.TrimSpace(c.Query("product_id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"supplier_id": supplierID,
		"count":       len(rows),
		"rows":        rows,
	})
}
