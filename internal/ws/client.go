package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/go-demo/roomchat/internal/chat"
	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Send buffer size
	sendBufferSize = 256

	// Upper bound for a single inbound operation
	operationTimeout = 5 * time.Second
)

// ChatService is the part of chat.Service a connection drives.
type ChatService interface {
	Join(ctx context.Context, identity string, params chat.JoinParams) (chat.RoomSnapshot, error)
	CreateRoom(ctx context.Context, identity string, params chat.CreateRoomParams) (chat.RoomSummary, error)
	SendMessage(identity, raw string) (chat.Message, error)
	Typing(identity string, active bool)
	Kick(identity, targetName, reason string) error
	DeleteMessage(identity, messageID string) error
	Leave(identity string)
	ListRooms(includePrivate bool) []chat.RoomSummary
	RequestPartner(identity string) error
	Disconnect(identity string)
	Stats() chat.Stats
}

// Client represents a WebSocket client connection
type Client struct {
	hub        *Hub
	service    ChatService
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	limiter    *rate.Limiter // nil disables flood control
	registered chan struct{}
	mu         sync.Mutex
	closed     bool
	logger     *zap.Logger
}

// NewClient creates a new client
func NewClient(hub *Hub, service ChatService, conn *websocket.Conn, id, remoteAddr string, limiter *rate.Limiter, logger *zap.Logger) *Client {
	return &Client{
		hub:        hub,
		service:    service,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		id:         id,
		remoteAddr: remoteAddr,
		limiter:    limiter,
		registered: make(chan struct{}),
		logger:     logger,
	}
}

// ID returns the connection identity
func (c *Client) ID() string {
	return c.id
}

// ReadPump pumps messages from the WebSocket connection to the chat service
func (c *Client) ReadPump() {
	defer func() {
		c.service.Disconnect(c.id)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.String("identity", c.id),
					zap.Error(err),
				)
			}
			break
		}

		c.handleFrame(data)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection. Each
// envelope goes out as its own text frame.
func (c *Client) WritePump() {
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
				// Hub closed the channel
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

// handleFrame applies flood control and decodes one inbound frame.
func (c *Client) handleFrame(data []byte) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.sendError(apperrors.ErrRateLimitExceeded.WithMessage("too many messages, slow down"))
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Failed to parse message",
			zap.String("identity", c.id),
			zap.Error(err),
		)
		c.sendError(apperrors.ErrBadRequest.WithMessage("invalid message format"))
		return
	}

	c.handleMessage(&msg)
}

// handleMessage handles incoming messages based on type. A panic is
// contained to the message that caused it.
func (c *Client) handleMessage(msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while handling message",
				zap.String("identity", c.id),
				zap.String("type", string(msg.Type)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			c.sendError(apperrors.ErrInternal)
		}
	}()

	switch msg.Type {
	case MessageTypeJoinRoom:
		c.handleJoinRoom(msg)
	case MessageTypeCreateRoom:
		c.handleCreateRoom(msg)
	case MessageTypeSendMessage:
		c.handleSendMessage(msg)
	case MessageTypeTypingStart:
		c.service.Typing(c.id, true)
	case MessageTypeTypingStop:
		c.service.Typing(c.id, false)
	case MessageTypeKickUser:
		c.handleKickUser(msg)
	case MessageTypeDeleteMessage:
		c.handleDeleteMessage(msg)
	case MessageTypeLeaveRoom:
		c.service.Leave(c.id)
	case MessageTypeGetRooms:
		c.handleGetRooms()
	case MessageTypeFindPartner:
		c.reply(c.service.RequestPartner(c.id))
	case MessageTypePing:
		c.handlePing(msg)
	default:
		c.sendError(apperrors.ErrBadRequest.WithMessage("unknown message type"))
	}
}

func (c *Client) handleJoinRoom(msg *Message) {
	var payload JoinRoomPayload
	if err := msg.ParsePayload(&payload); err != nil {
		c.sendError(apperrors.ErrBadRequest.WithMessage("invalid join-room payload"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	_, err := c.service.Join(ctx, c.id, chat.JoinParams{
		Username: payload.Username,
		RoomCode: payload.RoomCode,
		RoomType: payload.RoomType,
		Password: payload.Password,
	})
	c.reply(err)
}

func (c *Client) handleCreateRoom(msg *Message) {
	var payload CreateRoomPayload
	if err := msg.ParsePayload(&payload); err != nil {
		c.sendError(apperrors.ErrBadRequest.WithMessage("invalid create-room payload"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	_, err := c.service.CreateRoom(ctx, c.id, chat.CreateRoomParams{
		Username:    payload.Username,
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		MaxUsers:    int(payload.MaxUsers),
		Password:    payload.Password,
		Duration:    payload.Duration,
		IsModerated: payload.IsModerated,
		IsPrivate:   payload.IsPrivate,
		Code:        payload.Code,
	})
	c.reply(err)
}

func (c *Client) handleSendMessage(msg *Message) {
	var payload SendMessagePayload
	if err := msg.ParsePayload(&payload); err != nil {
		c.sendError(apperrors.ErrBadRequest.WithMessage("invalid send-message payload"))
		return
	}

	_, err := c.service.SendMessage(c.id, payload.Message)
	if errors.Is(err, apperrors.ErrEmptyMessage) {
		return
	}
	c.reply(err)
}

func (c *Client) handleKickUser(msg *Message) {
	var payload KickUserPayload
	if err := msg.ParsePayload(&payload); err != nil {
		c.sendError(apperrors.ErrBadRequest.WithMessage("invalid kick-user payload"))
		return
	}

	c.reply(c.service.Kick(c.id, payload.Username, payload.Reason))
}

func (c *Client) handleDeleteMessage(msg *Message) {
	var payload DeleteMessagePayload
	if err := msg.ParsePayload(&payload); err != nil {
		c.sendError(apperrors.ErrBadRequest.WithMessage("invalid delete-message payload"))
		return
	}

	c.reply(c.service.DeleteMessage(c.id, payload.MessageID))
}

func (c *Client) handleGetRooms() {
	c.sendEvent(chat.Event{
		Type:    chat.EventRoomList,
		Payload: chat.RoomListPayload{Rooms: c.service.ListRooms(false)},
	})
}

func (c *Client) handlePing(msg *Message) {
	pongMsg, _ := NewMessage(MessageTypePong, nil)
	pongMsg.RequestID = msg.RequestID
	c.SendMessage(pongMsg)
}

// reply reports err to the client; a nil err needs no reply because the
// chat service has already sent the success events.
func (c *Client) reply(err error) {
	if err == nil {
		return
	}
	appErr := apperrors.From(err)
	if appErr.Kind == apperrors.KindInternal {
		c.logger.Error("Chat operation failed",
			zap.String("identity", c.id),
			zap.Error(err),
		)
	}
	c.sendError(err)
}

func (c *Client) sendEvent(event chat.Event) {
	msg, err := NewEventMessage(event)
	if err != nil {
		c.logger.Error("Failed to encode event",
			zap.String("identity", c.id),
			zap.Error(err),
		)
		return
	}
	c.SendMessage(msg)
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message",
			zap.String("identity", c.id),
			zap.Error(err),
		)
		return
	}

	if !c.enqueue(data) {
		c.logger.Warn("Client send buffer full",
			zap.String("identity", c.id),
		)
	}
}

// enqueue queues data without blocking. It reports false when the buffer
// is full or the client is closed.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendError sends a room-error message to the client
func (c *Client) sendError(err error) {
	errMsg, _ := NewErrorMessage(err)
	c.SendMessage(errMsg)
}

// Close closes the client's send channel. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
