package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HandlerConfig tunes the WebSocket endpoint.
type HandlerConfig struct {
	// Allowed Origin header values. Empty or "*" allows any origin.
	AllowedOrigins []string

	// Per-connection inbound message rate. Zero disables flood control.
	MessageRate  float64
	MessageBurst int
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	service  ChatService
	upgrader websocket.Upgrader
	cfg      HandlerConfig
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, service ChatService, cfg HandlerConfig, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		cfg:    cfg,
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS handles WebSocket connection requests
// @Summary WebSocket 連線
// @Description 建立 WebSocket 連線加入聊天室。每個連線取得一個新的身分，顯示名稱在 join-room 時提供。
// @Tags WebSocket
// @Success 101 {string} string "Switching Protocols"
// @Failure 429 {object} response.Response
// @Router /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket",
			zap.Error(err),
		)
		return
	}

	var limiter *rate.Limiter
	if h.cfg.MessageRate > 0 {
		burst := h.cfg.MessageBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(h.cfg.MessageRate), burst)
	}

	client := NewClient(h.hub, h.service, conn, uuid.New().String(), c.ClientIP(), limiter, h.logger)

	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	// Start client pumps
	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket hub and chat statistics
// @Summary 獲取 WebSocket 統計資訊
// @Description 獲取連線數、聊天室數與配對佇列統計
// @Tags WebSocket
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/ws/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	hubStats := h.hub.GetStats()
	chatStats := h.service.Stats()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_clients":  hubStats["total_clients"],
			"dropped_events": hubStats["dropped_events"],
			"rooms":          chatStats.Rooms,
			"sessions":       chatStats.Sessions,
			"waiting":        chatStats.Waiting,
			"pairs":          chatStats.Pairs,
		},
	})
}
