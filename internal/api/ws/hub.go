package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/pkg/logger"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	// messages buffered per client; a slower client misses events
	sendBuffer = 64
)

// StatusMessage is one pipeline status change pushed to clients
type StatusMessage struct {
	Kind     pipeline.EventKind  `json:"kind"`
	Pipeline string              `json:"pipeline"`
	RunID    string              `json:"run_id,omitempty"`
	Step     string              `json:"step,omitempty"`
	Status   contracts.RunStatus `json:"status"`
	Error    string              `json:"error,omitempty"`
	Reason   string              `json:"reason,omitempty"`
	At       time.Time           `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts pipeline events to websocket clients
// ⭐ SSOT: live status fan-out happens here only
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.WithComponent("ws"),
		clients: make(map[*client]struct{}),
	}
}

// Observe is a pipeline.Observer. It never blocks the engine.
func (h *Hub) Observe(ev pipeline.Event) {
	data, err := json.Marshal(StatusMessage{
		Kind:     ev.Kind,
		Pipeline: ev.Pipeline,
		RunID:    ev.RunID,
		Step:     ev.Step,
		Status:   ev.Status,
		Error:    ev.ErrorMessage(),
		Reason:   ev.Reason,
		At:       ev.At,
	})
	if err != nil {
		h.logger.WithError(err).Warn("Failed to encode status message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("Client send buffer full, dropping status message")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams status messages until the client leaves
// GET /ws/status
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	done := make(chan struct{})
	go h.readLoop(c, done)
	h.writeLoop(c, done)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.WithField("clients", h.ClientCount()).Debug("WebSocket client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// readLoop drains client frames so that pongs and close frames are handled
func (h *Hub) readLoop(c *client, done chan<- struct{}) {
	defer close(done)

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

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()

	for {
		select {
		case <-done:
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
