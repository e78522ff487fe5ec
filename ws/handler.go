package ws

import (
	"net/http"

	"commhub/internal/bus"
	"commhub/internal/logger"
	"commhub/internal/middleware"
	"commhub/internal/presence"
	chatservice "commhub/internal/services/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin policy is enforced by the gateway in front of this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated requests into live sessions.
type Handler struct {
	chat      *chatservice.ChatService
	reactions *chatservice.ReactionService
	pins      *chatservice.PinService
	bus       bus.Bus
	presence  presence.Store
	windows   chatservice.PresenceWindows
}

func NewHandler(
	chat *chatservice.ChatService,
	reactions *chatservice.ReactionService,
	pins *chatservice.PinService,
	eventBus bus.Bus,
	presenceStore presence.Store,
	windows chatservice.PresenceWindows,
) *Handler {
	return &Handler{
		chat:      chat,
		reactions: reactions,
		pins:      pins,
		bus:       eventBus,
		presence:  presenceStore,
		windows:   windows,
	}
}

// ServeWS runs behind the auth middleware; an unidentified request never
// reaches the upgrade.
func (h *Handler) ServeWS(c *gin.Context) {
	userID, tenantID, ok := middleware.Identity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "user_id", userID, "error", err.Error())
		return
	}

	session := NewSession(userID, tenantID, h.chat, h.reactions, h.pins, h.bus, h.presence, h.windows, nil)
	client := NewClient(session, conn)
	session.out = client
	session.requestClose = func() { conn.Close() }

	logger.Info("websocket connected", "user_id", userID, "tenant_id", tenantID)
	client.Run(c.Request.Context())
	logger.Info("websocket disconnected", "user_id", userID)
}
