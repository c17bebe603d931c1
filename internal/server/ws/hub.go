// Package ws streams book and simulation events from the signal bus to
// browser clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Topics clients can subscribe to, keyed by the bus channel that feeds them.
const (
	TopicBook       = "book"
	TopicSimulation = "simulation"
)

var channelTopics = map[string]string{
	domain.ChannelBook:       TopicBook,
	domain.ChannelSimulation: TopicSimulation,
}

// Envelope is the frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// subscribeMsg is sent by clients to change their topic set, e.g.
// {"action":"unsubscribe","topics":["book"]}.
type subscribeMsg struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	topics map[string]bool
}

// Hub fans bus events out to connected websocket clients. Every client starts
// subscribed to all topics.
type Hub struct {
	bus       domain.SignalBus
	upgrader  websocket.Upgrader
	logger    *slog.Logger
	mode      string
	startedAt time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub reading from bus. allowedOrigins restricts the
// upgrade; empty or "*" accepts any origin.
func NewHub(bus domain.SignalBus, mode string, allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		bus:       bus,
		logger:    logger.With(slog.String("component", "ws_hub")),
		mode:      mode,
		startedAt: time.Now().UTC(),
		clients:   make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Run subscribes to the bus channels and broadcasts until ctx is cancelled,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for channel, topic := range channelTopics {
		msgs, err := h.bus.Subscribe(ctx, channel)
		if err != nil {
			h.logger.ErrorContext(ctx, "subscribe failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			continue
		}
		wg.Add(1)
		go func(topic string, msgs <-chan []byte) {
			defer wg.Done()
			for data := range msgs {
				h.broadcast(topic, data)
			}
		}(topic, msgs)
	}

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return ctx.Err()
}

func (h *Hub) broadcast(topic string, payload []byte) {
	frame, err := json.Marshal(Envelope{Type: topic, Payload: payload})
	if err != nil {
		h.logger.Warn("dropping undecodable bus payload", slog.String("topic", topic))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(topic) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("dropping message for slow client", slog.String("topic", topic))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		topics: map[string]bool{TopicBook: true, TopicSimulation: true},
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", slog.Int("total_clients", total))

	c.sendStatus()
	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected", slog.Int("total_clients", total))
}

func (c *client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}

func (c *client) readPump() {
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var sub subscribeMsg
		if json.Unmarshal(message, &sub) != nil {
			continue
		}
		c.mu.Lock()
		for _, t := range sub.Topics {
			switch sub.Action {
			case "subscribe":
				c.topics[t] = true
			case "unsubscribe":
				delete(c.topics, t)
			}
		}
		c.mu.Unlock()
	}
}

// sendStatus greets the client so it can mark the stream live before the
// first event arrives.
func (c *client) sendStatus() {
	frame, err := statusFrame(c.hub.mode, time.Since(c.hub.startedAt))
	if err != nil {
		c.hub.logger.Error("encode status frame failed", slog.String("error", err.Error()))
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// statusFrame builds the greeting envelope.
func statusFrame(mode string, uptime time.Duration) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"mode":           mode,
		"uptime_seconds": int64(uptime.Seconds()),
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: "status", Payload: payload})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
