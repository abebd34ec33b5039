package websocket

import (
	"sync"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// Hub manages WebSocket subscribers and fans out engine reports and
// alerts. Implements the notification service port.
type Hub struct {
	clients map[*Client]bool

	broadcastReport chan *dto.EngineReportDTO
	broadcastAlert  chan *dto.AlertDTO

	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:         make(map[*Client]bool),
		broadcastReport: make(chan *dto.EngineReportDTO, 256),
		broadcastAlert:  make(chan *dto.AlertDTO, 256),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		logger:          logger,
	}
}

// Run pumps registrations and broadcasts. Must run in its own goroutine.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case report := <-h.broadcastReport:
			h.fanOut(Message{Type: "report", Data: report})

		case alert := <-h.broadcastAlert:
			h.fanOut(Message{Type: "alert", Data: alert})
			h.logger.Debug("Alert broadcast to clients", "tier", alert.Tier)
		}
	}
}

// fanOut delivers one message to every client. A client whose send
// buffer is full is considered dead and dropped.
func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("Client channel full, disconnected")
		}
	}
}

// Register adds a new client.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastReport sends an engine report to all clients without blocking
// the caller.
func (h *Hub) BroadcastReport(report *dto.EngineReportDTO) {
	select {
	case h.broadcastReport <- report:
	default:
		h.logger.Warn("Broadcast channel full, dropping report")
	}
}

// BroadcastAlert sends an alert to all clients without blocking the
// caller.
func (h *Hub) BroadcastAlert(alert *dto.AlertDTO) {
	select {
	case h.broadcastAlert <- alert:
	default:
		h.logger.Warn("Broadcast alert channel full, dropping alert")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message is the envelope sent to clients.
type Message struct {
	Type string      `json:"type"` // "report" or "alert"
	Data interface{} `json:"data"`
}
