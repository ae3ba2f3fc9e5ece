// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/service"
	"heatpump-collector/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client represents one connected WebSocket client
type Client struct {
	ID          string
	Connection  *websocket.Conn
	Send        chan []byte
	RemoteAddr  string
	ConnectedAt time.Time
}

// WebSocketHandler streams live heat pump metrics to dashboard clients
type WebSocketHandler struct {
	upgrader      websocket.Upgrader
	statusService *service.StatusService
	refreshRate   time.Duration
	logger        *utils.ServiceLogger

	mu      sync.Mutex
	clients map[string]*Client

	startBroadcast sync.Once
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(statusService *service.StatusService, cfg *config.ServerConfig, logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:      upgrader,
		statusService: statusService,
		refreshRate:   cfg.RefreshRate,
		logger:        utils.NewServiceLogger(logger, "websocket-handler"),
		clients:       make(map[string]*Client),
	}
}

// HandleMetricsConnection upgrades the connection and streams the fleet
// overview every refresh interval
func (h *WebSocketHandler) HandleMetricsConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 16),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.startBroadcast.Do(func() {
		go h.broadcastLoop()
	})

	// send the current overview right away
	go h.sendOverview(client)

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

func (h *WebSocketHandler) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *WebSocketHandler) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
}

// handleClientRead drains client messages and detects disconnects
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected",
			zap.String("client_id", client.ID),
		)
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Connection.ReadMessage(); err != nil {
			return
		}
	}
}

// handleClientWrite pushes queued messages and keepalive pings
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcastLoop pushes the fleet overview to all clients on every tick
func (h *WebSocketHandler) broadcastLoop() {
	ticker := time.NewTicker(h.refreshRate)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		idle := len(h.clients) == 0
		h.mu.Unlock()
		if idle {
			continue
		}

		message, err := h.overviewMessage()
		if err != nil {
			h.logger.Error("Failed to build metrics message", zap.Error(err))
			continue
		}
		h.broadcast(message)
	}
}

func (h *WebSocketHandler) sendOverview(client *Client) {
	message, err := h.overviewMessage()
	if err != nil {
		h.logger.Error("Failed to build metrics message", zap.Error(err))
		return
	}

	select {
	case client.Send <- message:
	default:
	}
}

func (h *WebSocketHandler) overviewMessage() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statuses, err := h.statusService.Overview(ctx)
	if err != nil {
		return nil, err
	}

	return json.Marshal(gin.H{
		"type":      "metrics",
		"timestamp": time.Now(),
		"heatpumps": statuses,
	})
}

// broadcast queues a message for every connected client, dropping it for
// clients whose send buffer is full
func (h *WebSocketHandler) broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}
