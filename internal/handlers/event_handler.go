package handlers

import (
	"net/http"
	"time"

	"commhub/internal/middleware"
	"commhub/internal/repositories"
	"commhub/internal/services"
	"commhub/internal/services/dto"
	"commhub/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// EventHandler is the Emit entry point for sibling modules plus the email
// tracking callback.
type EventHandler struct {
	rules   *services.RuleService
	metrics repositories.MetricsRepository
}

func NewEventHandler(rules *services.RuleService, metrics repositories.MetricsRepository) *EventHandler {
	return &EventHandler{rules: rules, metrics: metrics}
}

// Emit fires the rule engine for a domain event.
func (h *EventHandler) Emit(c *gin.Context) {
	_, tenantID, ok := middleware.Identity(c)
	if !ok {
		apperrors.HandleError(c, apperrors.Unauthorized("notifications", "Authorization required"))
		return
	}

	var req dto.EmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.ValidationError("notifications", err.Error()))
		return
	}
	if req.EventType == "" || req.SourceModule == "" {
		apperrors.HandleError(c, apperrors.ValidationError("notifications", "event_type and source_module are required"))
		return
	}

	fired, err := h.rules.Emit(tenantID, &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules_fired": fired})
}

// transparent 1x1 GIF served to tracking pixel requests.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Track records an email open or click. Unauthenticated by necessity
// (mail clients fetch it); the delivery ID is the capability.
func (h *EventHandler) Track(c *gin.Context) {
	deliveryID := c.Param("deliveryID")
	event := c.Param("event")
	now := time.Now()

	var err error
	switch event {
	case "open":
		err = h.metrics.TrackEmailOpen(deliveryID, now)
	case "click":
		err = h.metrics.TrackEmailClick(deliveryID, now)
	default:
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		// A bad or stale ID still gets the pixel; nothing to leak.
		c.Data(http.StatusOK, "image/gif", trackingPixel)
		return
	}

	if event == "click" {
		if target := c.Query("url"); target != "" {
			c.Redirect(http.StatusFound, target)
			return
		}
	}
	c.Data(http.StatusOK, "image/gif", trackingPixel)
}
