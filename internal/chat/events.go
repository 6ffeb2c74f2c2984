package chat

import (
	"time"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

// EventType names an outbound event delivered to a single connection.
type EventType string

// Outbound event types
const (
	EventRoomJoined        EventType = "room-joined"
	EventRoomError         EventType = "room-error"
	EventRoomCreated       EventType = "room-created"
	EventRoomLeft          EventType = "room-left"
	EventUserJoined        EventType = "user-joined"
	EventUserLeft          EventType = "user-left"
	EventNewMessage        EventType = "new-message"
	EventMessageDeleted    EventType = "message-deleted"
	EventWarning           EventType = "warning"
	EventMuted             EventType = "muted"
	EventUnmuted           EventType = "unmuted"
	EventKicked            EventType = "kicked"
	EventUserKicked        EventType = "user-kicked"
	EventPromotedToAdmin   EventType = "promoted-to-admin"
	EventNewAdmin          EventType = "new-admin"
	EventUserTyping        EventType = "user-typing"
	EventUserStopTyping    EventType = "user-stop-typing"
	EventRoomList          EventType = "room-list"
	EventChatFound         EventType = "chat-found"
	EventWaitingForPartner EventType = "waiting-for-partner"
	EventPartnerLeft       EventType = "partner-left"
)

// Event is one notification for one recipient.
type Event struct {
	Type    EventType
	Payload interface{}
}

// Notifier delivers events to a connection identity. Implementations must
// not block and must not call back into the Service.
type Notifier interface {
	Notify(identity string, event Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(identity string, event Event)

// Notify calls f(identity, event).
func (f NotifierFunc) Notify(identity string, event Event) { f(identity, event) }

// MemberInfo describes one room member as seen by other clients.
type MemberInfo struct {
	Username string    `json:"username"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomSummary is the public view of a room. It never carries the password
// hash or member identities.
type RoomSummary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Category          Category   `json:"category"`
	UserCount         int        `json:"userCount"`
	MaxUsers          int        `json:"maxUsers"`
	Status            RoomStatus `json:"status"`
	IsGeneral         bool       `json:"isGeneral"`
	IsPrivate         bool       `json:"isPrivate"`
	IsModerated       bool       `json:"isModerated"`
	PasswordProtected bool       `json:"passwordProtected"`
	Duration          Duration   `json:"duration"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastActivity      time.Time  `json:"lastActivity"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}

// RoomSnapshot is sent to a connection when it enters a room.
type RoomSnapshot struct {
	RoomID   string       `json:"roomId"`
	RoomName string       `json:"roomName"`
	Username string       `json:"username"`
	IsAdmin  bool         `json:"isAdmin"`
	Room     RoomSummary  `json:"room"`
	Users    []MemberInfo `json:"users"`
	Messages []Message    `json:"messages"`
}

// ErrorPayload is the body of a room-error event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PresencePayload is the body of user-joined and user-left.
type PresencePayload struct {
	Username  string `json:"username"`
	UserCount int    `json:"userCount"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

type WarningPayload struct {
	Warnings int    `json:"warnings"`
	Message  string `json:"message"`
}

type MutedPayload struct {
	DurationMs int64 `json:"duration"`
}

type KickedPayload struct {
	Reason string `json:"reason"`
}

type UserKickedPayload struct {
	Username  string `json:"username"`
	Reason    string `json:"reason"`
	UserCount int    `json:"userCount"`
}

type NewAdminPayload struct {
	Username string `json:"username"`
}

type TypingPayload struct {
	Username string `json:"username"`
}

type RoomListPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

type ChatFoundPayload struct {
	RoomID string `json:"roomId"`
}

// RoomLeftPayload acknowledges an explicit leave.
type RoomLeftPayload struct {
	RoomID string `json:"roomId"`
}

// ErrorEvent converts err into a room-error event for the originating
// connection.
func ErrorEvent(err error) Event {
	appErr := apperrors.From(err)
	return Event{
		Type: EventRoomError,
		Payload: ErrorPayload{
			Code:    appErr.Code,
			Kind:    appErr.Kind,
			Message: appErr.Message,
		},
	}
}
