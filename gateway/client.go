package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chat-broker/contract"
	"chat-broker/domain/event"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var _ contract.EventSink = (*Client)(nil)

// Client is one websocket connection. It implements contract.EventSink
// so the broker can fan events straight into its send buffer; a full
// buffer drops the event instead of stalling the broker.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	gw   *Gateway
	log  *slog.Logger
}

// Consume queues an outbound event for the write pump.
func (c *Client) Consume(_ context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full, event %s dropped", e.Type)
	}
}

// enqueue marshals an acknowledgement onto the send buffer.
func (c *Client) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("Failed to marshal response", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Debug("Send buffer full, response dropped", "connection", c.id)
	}
}

// readPump decodes inbound frames and hands them to the gateway until
// the connection dies, then triggers unconditional disconnect cleanup.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.gw.broker.Disconnect(ctx, c.id)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("Websocket read failed", "connection", c.id, "error", err)
			}
			return
		}
		c.gw.dispatch(ctx, c, raw)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
