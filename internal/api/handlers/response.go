package handlers

import (
	"net/http"

	"github.com/andresuchdata/ecoagent/backend-go/internal/api/middleware"
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StatusForKind maps a domain error kind to an HTTP status.
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNoData:
		return http.StatusNotFound
	case domain.KindDataUnavailable:
		return http.StatusBadGateway
	case domain.KindMalformed, domain.KindInsufficientData, domain.KindUnknownProvider, domain.KindStaleData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"status":"error", ...} with a matching code.
func respondError(c *gin.Context, err error) {
	code := StatusForKind(domain.KindOf(err))
	if errors.Is(err, service.ErrImportDisabled) || errors.Is(err, service.ErrDriveDisabled) {
		code = http.StatusNotImplemented
	}

	event := log.Warn()
	if code >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("request_id", middleware.GetRequestID(c)).Int("status", code).Msg("request failed")

	c.JSON(code, gin.H{
		"status":  "error",
		"message": err.Error(),
		"error":   domain.DetailOf(err),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": message})
}
