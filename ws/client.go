package ws

import (
	"context"
	"encoding/json"
	"time"

	"commhub/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
)

// Client owns the socket I/O for one session: a read pump feeding the
// session's action dispatch and a write pump draining the send queue.
type Client struct {
	session *Session
	conn    *websocket.Conn
	send    chan any
	done    chan struct{}
}

func NewClient(session *Session, conn *websocket.Conn) *Client {
	return &Client{
		session: session,
		conn:    conn,
		send:    make(chan any, sendQueueSize),
		done:    make(chan struct{}),
	}
}

// Deliver queues an event for the write pump. Non-blocking: a full queue
// means the client cannot keep up and reports failure, which evicts it
// from the publishing group.
func (c *Client) Deliver(event any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		logger.Warn("client send queue full, dropping",
			"user_id", c.session.UserID)
		return false
	}
}

// Run services the connection until it drops, then tears the session
// down.
func (c *Client) Run(ctx context.Context) {
	c.session.Open(ctx)
	go c.writePump()
	c.readPump(ctx)

	close(c.done)
	c.session.Close(context.Background())
}

func (c *Client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error",
					"user_id", c.session.UserID, "error", err.Error())
			}
			return
		}
		c.session.Handle(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Warn("event marshal failed", "user_id", c.session.UserID, "error", err.Error())
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
