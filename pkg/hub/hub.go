package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name   string
	logger *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex

	running atomic.Bool

	sent        atomic.Uint64
	dropped     atomic.Uint64
	slowClients atomic.Uint64
}

// Stats counts hub traffic.
type Stats struct {
	Clients     int    `json:"clients"`
	Sent        uint64 `json:"sent"`
	Dropped     uint64 `json:"dropped"`
	SlowClients uint64 `json:"slow_clients"`
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("component", "hub", "hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done, after closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.logger.Info("client connected", "clients", h.attach(c))
		case c := <-h.unregister:
			h.logger.Info("client disconnected", "clients", h.detach(c))
		case msg := <-h.broadcast:
			h.fanout(msg)
		}
	}
}

func (h *Hub) attach(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	return len(h.clients)
}

func (h *Hub) detach(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	return len(h.clients)
}

// fanout queues msg on every client. A client whose queue is full is cut
// off rather than allowed to stall the others.
func (h *Hub) fanout(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
			h.sent.Add(1)
		default:
			delete(h.clients, c)
			close(c.send)
			h.slowClients.Add(1)
			h.logger.Warn("dropped slow client", "clients", len(h.clients))
		}
	}
}

func (h *Hub) shutdown() {
	h.running.Store(false)
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	close(h.done)
}

// Broadcast sends a message to all connected clients without blocking.
// It reports false if the message was dropped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast channel full, dropping message")
		return false
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !h.Broadcast(NewJSONMessage(data)) {
		return ErrBroadcastFull
	}
	return nil
}

// BroadcastBinary broadcasts binary data (e.g., camera frames)
func (h *Hub) BroadcastBinary(data []byte) bool {
	return h.Broadcast(NewBinaryMessage(data))
}

// Subscribe registers an in-process client and returns its message channel
// plus a function that unregisters it. The channel is closed on unsubscribe,
// when the client falls too far behind, or when the hub stops.
func (h *Hub) Subscribe(buffer int) (<-chan Message, func()) {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	if !h.add(c) {
		close(c.send)
		return c.send, func() {}
	}
	var once sync.Once
	return c.send, func() { once.Do(func() { h.remove(c) }) }
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}

// Stats returns the hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:     h.ClientCount(),
		Sent:        h.sent.Load(),
		Dropped:     h.dropped.Load(),
		SlowClients: h.slowClients.Load(),
	}
}
