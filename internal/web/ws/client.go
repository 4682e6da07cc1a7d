package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EliasAN1/Stacktictoe/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection registered with the hub
type Client struct {
	id          model.ConnID
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
}

// ID returns the connection id assigned at upgrade
func (c *Client) ID() model.ConnID {
	return c.id
}

// readPump decodes inbound frames and hands them to the handler until the
// peer goes away
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.hub.handler.Disconnect(ctx, c.id)
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed",
					slog.String("conn_id", string(c.id)),
					slog.String("error", err.Error()))
			}
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.hub.logger.Warn("undecodable frame dropped",
				slog.String("conn_id", string(c.id)))
			continue
		}
		c.hub.handler.Handle(ctx, c.id, env)
	}
}

// writePump sends queued frames and keepalive pings. One frame per event.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
