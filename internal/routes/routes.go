package routes

import (
	"net/http"

	"commhub/internal/handlers"
	"commhub/internal/middleware"
	"commhub/ws"

	"github.com/gin-gonic/gin"
)

// Setup wires the HTTP surface: the notification read APIs, the event
// entry point, the email tracking callback and the websocket upgrade.
func Setup(
	r *gin.Engine,
	notifications *handlers.NotificationHandler,
	events *handlers.EventHandler,
	wsHandler *ws.Handler,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Email clients fetch the pixel without credentials.
	r.GET("/api/v1/email/track/:deliveryID/:event", events.Track)
	r.POST("/api/v1/email/track/:deliveryID/:event", events.Track)

	api := r.Group("/api/v1", middleware.AuthMiddleware())
	{
		api.GET("/notifications", notifications.List)
		api.GET("/notifications/unread-count", notifications.UnreadCount)
		api.PUT("/notifications/:id/read", notifications.MarkRead)
		api.PUT("/notifications/read-all", notifications.MarkAllRead)

		api.POST("/events", events.Emit)
	}

	r.GET("/ws", middleware.AuthMiddleware(), wsHandler.ServeWS)
}
