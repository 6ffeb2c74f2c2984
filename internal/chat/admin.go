package chat

import (
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

// DefaultKickReason is used when the admin gives none.
const DefaultKickReason = "Removed by the room admin"

// Kick removes the earliest-joined member named targetName from the
// admin's room, skipping the admin itself.
// The target receives kicked and the remaining members user-kicked; no
// user-left is sent for a kick.
func (s *Service) Kick(identity, targetName, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.adminRoomLocked(identity)
	if err != nil {
		return err
	}

	targetName = strings.TrimSpace(targetName)
	target := room.memberByName(targetName, identity)
	if target == nil {
		if self, ok := s.sessions[identity]; ok && self.DisplayName == targetName {
			return apperrors.ErrCannotKickSelf
		}
		return apperrors.ErrTargetNotFound
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultKickReason
	}

	s.leaveLocked(target.Identity, false)

	s.send(target.Identity, EventKicked, KickedPayload{Reason: reason})
	s.broadcast(room, EventUserKicked, UserKickedPayload{
		Username:  target.DisplayName,
		Reason:    reason,
		UserCount: room.MemberCount(),
	})

	s.recordAudit(room.ID, identity, target.DisplayName, AuditUserKicked, reason)
	s.logger.Info("User kicked",
		zap.String("room_id", room.ID),
		zap.String("admin", identity),
		zap.String("target", target.Identity),
		zap.String("reason", reason),
	)
	return nil
}

// DeleteMessage removes a message from the admin's room history. Members
// are told only when a message was actually removed.
func (s *Service) DeleteMessage(identity, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.adminRoomLocked(identity)
	if err != nil {
		return err
	}

	if !room.removeMessage(messageID) {
		return nil
	}

	s.broadcast(room, EventMessageDeleted, MessageDeletedPayload{MessageID: messageID})
	s.recordAudit(room.ID, identity, messageID, AuditMessageDeleted, "")
	return nil
}

func (s *Service) adminRoomLocked(identity string) (*Room, error) {
	sess, room := s.joinedRoomLocked(identity)
	if room == nil || !sess.IsAdmin(room) {
		return nil, apperrors.ErrNotAuthorized
	}
	return room, nil
}
