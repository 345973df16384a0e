package hub

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/termbridge/internal/protocol"
)

type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:   generateID(),
		conn: conn,
		send: make(chan []byte, 256),
		hub:  hub,
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(32768)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Printf("client %s read error: %v", c.id, err)
			}
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			log.Printf("client %s invalid message: %v", c.id, err)
			continue
		}
		if c.hub.ctrl == nil {
			continue
		}

		switch env.Event {
		case protocol.EventInput:
			var p protocol.InputPayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				log.Printf("client %s bad input payload: %v", c.id, err)
				continue
			}
			if p.Input == "" {
				continue
			}
			if err := c.hub.ctrl.WriteInput([]byte(p.Input)); err != nil {
				log.Printf("client %s input rejected: %v", c.id, err)
			}

		case protocol.EventResize:
			var p protocol.ResizePayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				log.Printf("client %s bad resize payload: %v", c.id, err)
				continue
			}
			if p.Cols <= 0 || p.Rows <= 0 {
				continue
			}
			if err := c.hub.ctrl.Resize(p.Cols, p.Rows); err != nil {
				log.Printf("client %s resize rejected: %v", c.id, err)
			}

		case protocol.EventResendOutput:
			// Answer only the requesting client, not the whole room.
			lines, x, y, err := c.hub.ctrl.Snapshot()
			if err != nil {
				log.Printf("client %s refresh with no live run: %v", c.id, err)
				continue
			}
			for _, frame := range marshalScreen(lines, x, y) {
				select {
				case c.send <- frame:
				default:
				}
			}

		default:
			log.Printf("client %s unknown event %q", c.id, env.Event)
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			err := c.conn.Ping(ctx)
			if err != nil {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			err := c.conn.Write(ctx, websocket.MessageText, msg)
			if err != nil {
				return
			}
		}
	}
}

func generateID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(6)
}

func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
