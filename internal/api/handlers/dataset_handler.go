package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

const maxUploadSize = 32 << 20

type DatasetHandler struct {
	service *service.DatasetService
}

func NewDatasetHandler(service *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

func (h *DatasetHandler) dataset(c *gin.Context) (domain.Dataset, bool) {
	d, ok := domain.ParseDataset(c.Param("dataset"))
	if !ok {
		badRequest(c, "unknown dataset "+c.Param("dataset"))
	}
	return d, ok
}

func (h *DatasetHandler) List(c *gin.Context) {
	infos, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

// Fetch returns the rows of a dataset matching ?key (all rows when empty).
func (h *DatasetHandler) Fetch(c *gin.Context) {
	d, ok := h.dataset(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.Query("key"))
	rows, err := h.service.Fetch(c.Request.Context(), d, key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"dataset": d,
		"key":     key,
		"count":   len(rows),
		"rows":    rows,
	})
}

// Upload replaces a dataset with the multipart "file" field (CSV or XLSX).
func (h *DatasetHandler) Upload(c *gin.Context) {
	d, ok := h.dataset(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if file.Size > maxUploadSize {
		badRequest(c, "file too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		badRequest(c, "unable to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		badRequest(c, "unable to read file")
		return
	}

	result, err := h.service.Upload(c.Request.Context(), d, file.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Import copies the stored CSV of a dataset into its database table.
func (h *DatasetHandler) Import(c *gin.Context) {
	d, ok := h.dataset(c)
	if !ok {
		return
	}
	n, err := h.service.Import(c.Request.Context(), d)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "dataset": d, "rows": n})
}

// Sync pulls dataset files from the Drive folder in ?folder (or the default).
func (h *DatasetHandler) Sync(c *gin.Context) {
	report, err := h.service.SyncFromDrive(c.Request.Context(), strings.TrimSpace(c.Query("folder")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
