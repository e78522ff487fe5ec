package handlers

import (
	"net/http"

	"commhub/internal/middleware"
	"commhub/internal/repositories"
	"commhub/internal/services"
	"commhub/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the recipient-facing read APIs.
type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, tenantID, ok := middleware.Identity(c)
	if !ok {
		apperrors.HandleError(c, apperrors.Unauthorized("notifications", "Authorization required"))
		return
	}

	var criteria repositories.NotificationCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		apperrors.HandleError(c, apperrors.ValidationError("notifications", err.Error()))
		return
	}

	resp, err := h.notifications.GetForRecipient(tenantID, userID, criteria)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, tenantID, ok := middleware.Identity(c)
	if !ok {
		apperrors.HandleError(c, apperrors.Unauthorized("notifications", "Authorization required"))
		return
	}

	count, err := h.notifications.UnreadCount(tenantID, userID)
	if err != nil {
		apperrors.HandleError(c, apperrors.DatabaseError("notifications", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, tenantID, ok := middleware.Identity(c)
	if !ok {
		apperrors.HandleError(c, apperrors.Unauthorized("notifications", "Authorization required"))
		return
	}

	if err := h.notifications.MarkAsRead(tenantID, userID, c.Param("id")); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, tenantID, ok := middleware.Identity(c)
	if !ok {
		apperrors.HandleError(c, apperrors.Unauthorized("notifications", "Authorization required"))
		return
	}

	if err := h.notifications.MarkAllAsRead(tenantID, userID); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
