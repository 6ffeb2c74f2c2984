package ws

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-demo/roomchat/internal/chat"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> Server messages
	MessageTypeJoinRoom      MessageType = "join-room"
	MessageTypeCreateRoom    MessageType = "create-room"
	MessageTypeSendMessage   MessageType = "send-message"
	MessageTypeTypingStart   MessageType = "typing-start"
	MessageTypeTypingStop    MessageType = "typing-stop"
	MessageTypeKickUser      MessageType = "kick-user"
	MessageTypeDeleteMessage MessageType = "delete-message"
	MessageTypeLeaveRoom     MessageType = "leave-room"
	MessageTypeGetRooms      MessageType = "get-rooms"
	MessageTypeFindPartner   MessageType = "find-partner"
	MessageTypePing          MessageType = "ping"

	// Server -> Client messages not produced by the chat core
	MessageTypePong MessageType = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// JoinRoomPayload represents join room payload
type JoinRoomPayload struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
	RoomType string `json:"roomType,omitempty"`
	Password string `json:"password,omitempty"`
}

// CreateRoomPayload represents create room payload
type CreateRoomPayload struct {
	Username    string  `json:"username"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	MaxUsers    FlexInt `json:"maxUsers,omitempty"`
	Password    string  `json:"password,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	IsModerated *bool   `json:"isModerated,omitempty"`
	IsPrivate   bool    `json:"isPrivate,omitempty"`
	Code        string  `json:"code,omitempty"`
}

// SendMessagePayload represents send message payload
type SendMessagePayload struct {
	Message string `json:"message"`
}

// KickUserPayload represents kick user payload
type KickUserPayload struct {
	Username string `json:"username"`
	Reason   string `json:"reason,omitempty"`
}

// DeleteMessagePayload represents delete message payload
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// FlexInt decodes a JSON number or a numeric string. Anything else decodes
// to zero, which callers treat as "use the default".
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) {
		*f = 0
		return nil
	}
	switch {
	case n > math.MaxInt32:
		n = math.MaxInt32
	case n < math.MinInt32:
		n = math.MinInt32
	}
	*f = FlexInt(int(n))
	return nil
}

// NewMessage creates a new message
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// NewEventMessage wraps a chat event in the wire envelope.
func NewEventMessage(event chat.Event) (*Message, error) {
	return NewMessage(MessageType(event.Type), event.Payload)
}

// NewErrorMessage creates a room-error message describing err.
func NewErrorMessage(err error) (*Message, error) {
	return NewEventMessage(chat.ErrorEvent(err))
}

// ParsePayload parses message payload into the given type. A missing
// payload leaves v untouched.
func (m *Message) ParsePayload(v interface{}) error {
	if len(m.Payload) == 0 || bytes.Equal(m.Payload, []byte("null")) {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
