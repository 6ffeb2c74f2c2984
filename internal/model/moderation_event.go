package model

import (
	"database/sql"
	"time"
)

// ModerationEvent is one row of the append-only moderation audit log.
type ModerationEvent struct {
	ID        int64          `db:"id" json:"id"`
	RoomID    string         `db:"room_id" json:"room_id"`
	ActorID   sql.NullString `db:"actor_id" json:"actor_id,omitempty"`
	Target    sql.NullString `db:"target" json:"target,omitempty"`
	Action    string         `db:"action" json:"action"`
	Detail    sql.NullString `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// NullString maps an empty string to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
