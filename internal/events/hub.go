package events

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/infrastructure/monitoring"
)

// Broadcaster delivers fire-and-forget events into every live script
// context of one extension
type Broadcaster interface {
	Broadcast(extensionGUID, event string, payload any)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // script contexts connect from the embedder, not browsers
	},
}

// Envelope is the wire form of a broadcast event
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Hub fans events out over WebSocket connections, one set per extension
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]map[*websocket.Conn]bool
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHub creates an event hub
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		conns:  make(map[string]map[*websocket.Conn]bool),
		logger: logger,
	}
}

// WithMetrics attaches a metrics collector
func (h *Hub) WithMetrics(m *monitoring.Metrics) *Hub {
	h.metrics = m
	return h
}

// HandleConnection upgrades an HTTP request into an event stream for one
// extension's script context
func (h *Hub) HandleConnection(c *gin.Context) {
	guid := c.Param("guid")
	if guid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing extension guid"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.attach(guid, conn)
	defer h.detach(guid, conn)

	// Reads only keep the connection alive; events flow one way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connection of one extension.
// Dead connections are dropped; delivery is best effort.
func (h *Hub) Broadcast(extensionGUID, event string, payload any) {
	data, err := sonic.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("event encode failed", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.metrics.RecordBroadcast(event)
	for conn := range h.conns[extensionGUID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.conns[extensionGUID], conn)
		}
	}
}

// DisconnectAll closes every connection of one extension
func (h *Hub) DisconnectAll(extensionGUID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns[extensionGUID] {
		conn.Close()
	}
	delete(h.conns, extensionGUID)
}

func (h *Hub) attach(guid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[guid] == nil {
		h.conns[guid] = make(map[*websocket.Conn]bool)
	}
	h.conns[guid][conn] = true
}

func (h *Hub) detach(guid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.conns[guid], conn)
}
