package chat

import (
	"strings"
	"time"

	"github.com/go-demo/roomchat/internal/pkg/clock"
)

// GeneralRoomCode is the reserved code of the always-present general room.
const GeneralRoomCode = "GENERAL"

// Category groups rooms in listings.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryGaming    Category = "gaming"
	CategoryMusic     Category = "music"
	CategoryEducation Category = "education"
	CategoryChat      Category = "chat"
	CategoryHelp      Category = "help"
	CategoryOther     Category = "other"
)

var categories = map[Category]bool{
	CategoryGeneral:   true,
	CategoryGaming:    true,
	CategoryMusic:     true,
	CategoryEducation: true,
	CategoryChat:      true,
	CategoryHelp:      true,
	CategoryOther:     true,
}

// ParseCategory normalizes s to a known category, defaulting to other.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if categories[c] {
		return c
	}
	return CategoryOther
}

// Duration is a room lifetime measured from creation.
type Duration string

const (
	DurationHour      Duration = "1h"
	DurationSixHours  Duration = "6h"
	DurationDay       Duration = "1d"
	DurationUnlimited Duration = "unlimited"
)

var durationTTLs = map[Duration]time.Duration{
	DurationHour:     time.Hour,
	DurationSixHours: 6 * time.Hour,
	DurationDay:      24 * time.Hour,
}

// ParseDuration resolves a duration key. Unknown keys mean unlimited.
func ParseDuration(s string) Duration {
	d := Duration(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := durationTTLs[d]; ok {
		return d
	}
	return DurationUnlimited
}

// TTL returns the lifetime and false for unlimited rooms.
func (d Duration) TTL() (time.Duration, bool) {
	ttl, ok := durationTTLs[d]
	return ttl, ok
}

// RoomStatus is derived for listings.
type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "open"
	RoomStatusFull   RoomStatus = "full"
	RoomStatusLocked RoomStatus = "locked"
)

// Message is one entry of a room's history.
type Message struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

// Room is the registry's record of one room. All fields are guarded by the
// owning Service's mutex.
type Room struct {
	ID           string
	Name         string
	Description  string
	Category     Category
	MaxUsers     int
	Duration     Duration
	Admin        string
	CreatedBy    string
	CreatedAt    time.Time
	LastActivity time.Time
	IsModerated  bool
	IsPrivate    bool

	passwordHash string
	general      bool
	members      []*Session
	messages     []Message
}

func (r *Room) IsGeneral() bool { return r.general }

func (r *Room) HasPassword() bool { return r.passwordHash != "" }

func (r *Room) MemberCount() int { return len(r.members) }

func (r *Room) IsFull() bool { return len(r.members) >= r.MaxUsers }

func (r *Room) IsEmpty() bool { return len(r.members) == 0 }

func (r *Room) Status() RoomStatus {
	switch {
	case r.HasPassword():
		return RoomStatusLocked
	case r.IsFull():
		return RoomStatusFull
	default:
		return RoomStatusOpen
	}
}

// ExpiresAt returns when a bounded room expires.
func (r *Room) ExpiresAt() (time.Time, bool) {
	ttl, ok := r.Duration.TTL()
	if !ok || r.general {
		return time.Time{}, false
	}
	return r.CreatedAt.Add(ttl), true
}

// Expired reports whether more than the room's duration has elapsed since
// creation. General and unlimited rooms never expire.
func (r *Room) Expired(now time.Time) bool {
	expiresAt, ok := r.ExpiresAt()
	return ok && now.After(expiresAt)
}

func (r *Room) touch(now time.Time) {
	if now.After(r.LastActivity) {
		r.LastActivity = now
	}
}

func (r *Room) addMember(s *Session) {
	r.members = append(r.members, s)
}

func (r *Room) removeMember(identity string) bool {
	for i, m := range r.members {
		if m.Identity == identity {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// memberByName returns the earliest-joined member with the given name,
// ignoring the session identified by skip.
func (r *Room) memberByName(name, skip string) *Session {
	for _, m := range r.members {
		if m.DisplayName == name && m.Identity != skip {
			return m
		}
	}
	return nil
}

func (r *Room) appendMessage(msg Message, limit int) {
	r.messages = append(r.messages, msg)
	if over := len(r.messages) - limit; over > 0 {
		r.messages = append(r.messages[:0:0], r.messages[over:]...)
	}
}

func (r *Room) removeMessage(id string) bool {
	for i, m := range r.messages {
		if m.ID == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return true
		}
	}
	return false
}

// recentMessages returns a copy of the last n messages.
func (r *Room) recentMessages(n int) []Message {
	start := len(r.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(r.messages)-start)
	copy(out, r.messages[start:])
	return out
}

// Messages returns a copy of the full history.
func (r *Room) Messages() []Message {
	return r.recentMessages(len(r.messages))
}

func (r *Room) memberInfos() []MemberInfo {
	infos := make([]MemberInfo, 0, len(r.members))
	for _, m := range r.members {
		infos = append(infos, MemberInfo{
			Username: m.DisplayName,
			IsAdmin:  m.Identity == r.Admin,
			JoinedAt: m.JoinedAt,
		})
	}
	return infos
}

// Summary returns the public view of the room.
func (r *Room) Summary() RoomSummary {
	summary := RoomSummary{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Category:          r.Category,
		UserCount:         len(r.members),
		MaxUsers:          r.MaxUsers,
		Status:            r.Status(),
		IsGeneral:         r.general,
		IsPrivate:         r.IsPrivate,
		IsModerated:       r.IsModerated,
		PasswordProtected: r.HasPassword(),
		Duration:          r.Duration,
		CreatedAt:         r.CreatedAt,
		LastActivity:      r.LastActivity,
	}
	if expiresAt, ok := r.ExpiresAt(); ok {
		summary.ExpiresAt = &expiresAt
	}
	return summary
}

// Session is the live binding of a connection to a room. A Session exists
// only while its connection is joined; leaving destroys it.
type Session struct {
	Identity    string
	DisplayName string
	RoomID      string
	Warnings    int
	Muted       bool
	JoinedAt    time.Time

	epoch       uint64
	unmuteTimer *clock.Timer
}

// IsAdmin reports whether the session owns room.
func (s *Session) IsAdmin(room *Room) bool {
	return room != nil && room.ID == s.RoomID && room.Admin == s.Identity
}
