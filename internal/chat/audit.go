package chat

import "time"

// AuditAction names a moderation event.
type AuditAction string

const (
	AuditRoomCreated      AuditAction = "room_created"
	AuditRoomDeleted      AuditAction = "room_deleted"
	AuditUserWarned       AuditAction = "user_warned"
	AuditUserMuted        AuditAction = "user_muted"
	AuditUserKicked       AuditAction = "user_kicked"
	AuditMessageDeleted   AuditAction = "message_deleted"
	AuditAdminTransferred AuditAction = "admin_transferred"
)

// AuditEntry is one moderation event.
type AuditEntry struct {
	RoomID    string
	ActorID   string
	Target    string
	Action    AuditAction
	Detail    string
	CreatedAt time.Time
}

// AuditSink receives moderation events. Record is called with the state
// lock held and must not block.
type AuditSink interface {
	Record(entry AuditEntry)
}

type nopAuditSink struct{}

func (nopAuditSink) Record(AuditEntry) {}

func (s *Service) recordAudit(roomID, actor, target string, action AuditAction, detail string) {
	s.audit.Record(AuditEntry{
		RoomID:    roomID,
		ActorID:   actor,
		Target:    target,
		Action:    action,
		Detail:    detail,
		CreatedAt: s.clock.Now(),
	})
}
