package response

import (
	"time"

	"github.com/go-demo/roomchat/internal/chat"
)

// RoomResponse represents a room response
type RoomResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Category          string  `json:"category"`
	Status            string  `json:"status"`
	UserCount         int     `json:"user_count"`
	MaxUsers          int     `json:"max_users"`
	IsGeneral         bool    `json:"is_general"`
	IsModerated       bool    `json:"is_moderated"`
	PasswordProtected bool    `json:"password_protected"`
	Duration          string  `json:"duration"`
	CreatedAt         string  `json:"created_at"`
	LastActivity      string  `json:"last_activity"`
	ExpiresAt         *string `json:"expires_at,omitempty"`
}

// NewRoomResponse creates a room response from a summary
func NewRoomResponse(room chat.RoomSummary) *RoomResponse {
	resp := &RoomResponse{
		ID:                room.ID,
		Name:              room.Name,
		Description:       room.Description,
		Category:          string(room.Category),
		Status:            string(room.Status),
		UserCount:         room.UserCount,
		MaxUsers:          room.MaxUsers,
		IsGeneral:         room.IsGeneral,
		IsModerated:       room.IsModerated,
		PasswordProtected: room.PasswordProtected,
		Duration:          string(room.Duration),
		CreatedAt:         room.CreatedAt.Format(time.RFC3339),
		LastActivity:      room.LastActivity.Format(time.RFC3339),
	}

	if room.ExpiresAt != nil {
		expires := room.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}

	return resp
}

// RoomListResponse represents a list of rooms
type RoomListResponse struct {
	Rooms []*RoomResponse `json:"rooms"`
	Total int             `json:"total"`
}

// NewRoomListResponse creates a room list response
func NewRoomListResponse(rooms []chat.RoomSummary) *RoomListResponse {
	items := make([]*RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		items = append(items, NewRoomResponse(room))
	}
	return &RoomListResponse{Rooms: items, Total: len(items)}
}

// RoomMemberResponse represents a room member response
type RoomMemberResponse struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	JoinedAt string `json:"joined_at"`
}

// RoomDetailResponse is a room with its current members
type RoomDetailResponse struct {
	*RoomResponse
	Members []*RoomMemberResponse `json:"members"`
}

// NewRoomDetailResponse creates a detailed room response
func NewRoomDetailResponse(room chat.RoomSummary, members []chat.MemberInfo) *RoomDetailResponse {
	items := make([]*RoomMemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, &RoomMemberResponse{
			Username: m.Username,
			IsAdmin:  m.IsAdmin,
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		})
	}
	return &RoomDetailResponse{
		RoomResponse: NewRoomResponse(room),
		Members:      items,
	}
}
