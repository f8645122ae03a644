package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers only send control frames.
	maxMessageSize = 4 * 1024

	// clientBuffer is the per-client queue depth before it counts as slow.
	clientBuffer = 64
)

// Client is one subscriber. conn is nil for in-process subscribers.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	// Camera frames skipped because a newer one was already queued.
	skipped uint64
}

// NewClient creates a websocket client and registers it with the hub.
// It returns nil if the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, clientBuffer),
	}
	if !hub.add(c) {
		return nil
	}
	return c
}

// Run serves the connection until the viewer disconnects or the hub stops.
// Call it from the websocket handler.
func (c *Client) Run() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop discards inbound frames; it exists to observe pongs and
// disconnects.
func (c *Client) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop owns all writes to the connection.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
		if c.skipped > 0 {
			c.hub.logger.Debug("viewer skipped stale frames", "skipped", c.skipped)
		}
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			for _, m := range c.coalesce(msg) {
				if err := c.write(m); err != nil {
					return
				}
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// coalesce drains whatever is already queued behind first. Binary camera
// frames collapse to the newest one; text messages are kept in order.
func (c *Client) coalesce(first Message) []Message {
	batch := []Message{first}
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return batch
			}
			batch = append(batch, m)
		default:
			return latestFrame(batch, &c.skipped)
		}
	}
}

// latestFrame drops every binary message except the last one.
func latestFrame(batch []Message, skipped *uint64) []Message {
	last := -1
	for i, m := range batch {
		if m.Type == BinaryMessage {
			last = i
		}
	}
	out := batch[:0]
	for i, m := range batch {
		if m.Type == BinaryMessage && i != last {
			*skipped++
			continue
		}
		out = append(out, m)
	}
	return out
}

func (c *Client) write(m Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	kind := websocket.TextMessage
	if m.Type == BinaryMessage {
		kind = websocket.BinaryMessage
	}
	return c.conn.WriteMessage(kind, m.Data)
}
