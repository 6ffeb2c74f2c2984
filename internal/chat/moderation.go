package chat

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

// SendMessage runs raw through the moderation pipeline and broadcasts the
// result to every member of the sender's room, sender included.
//
// Muted or unjoined senders get ErrNotPermitted. Blank messages give
// ErrEmptyMessage, which the transport drops without a reply. In moderated
// rooms banned words are masked rather than rejected; each masked message
// adds a warning, and reaching the warning threshold mutes the sender for
// the configured duration.
func (s *Service) SendMessage(identity, raw string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, room := s.joinedRoomLocked(identity)
	if room == nil || sess.Muted {
		return Message{}, apperrors.ErrNotPermitted
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return Message{}, apperrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.cfg.MaxMessageLength {
		return Message{}, apperrors.ErrValidation.WithMessage(
			"message must be at most " + strconv.Itoa(s.cfg.MaxMessageLength) + " characters")
	}

	if room.IsModerated {
		redacted := s.filter.Redact(text)
		if redacted != text {
			text = redacted
			s.warnLocked(sess, room)
		}
	}

	now := s.clock.Now()
	msg := Message{
		ID:        uuid.New().String(),
		Username:  sess.DisplayName,
		Text:      text,
		Timestamp: now,
		UserID:    identity,
	}
	room.appendMessage(msg, s.cfg.MaxHistory)
	room.touch(now)

	s.broadcast(room, EventNewMessage, msg)
	return msg, nil
}

func (s *Service) warnLocked(sess *Session, room *Room) {
	sess.Warnings++
	s.send(sess.Identity, EventWarning, WarningPayload{
		Warnings: sess.Warnings,
		Message:  "Inappropriate language detected. Warning " + strconv.Itoa(sess.Warnings) + " of " + strconv.Itoa(s.cfg.WarningThreshold),
	})
	s.recordAudit(room.ID, "", sess.DisplayName, AuditUserWarned, strconv.Itoa(sess.Warnings))

	if sess.Warnings >= s.cfg.WarningThreshold && !sess.Muted {
		s.muteLocked(sess, room)
	}
}

// muteLocked mutes sess and schedules the unmute. The timer is keyed by the
// session's membership epoch so it cannot touch a later membership.
func (s *Service) muteLocked(sess *Session, room *Room) {
	sess.Muted = true
	s.send(sess.Identity, EventMuted, MutedPayload{DurationMs: s.cfg.MuteDuration.Milliseconds()})

	identity, epoch := sess.Identity, sess.epoch
	sess.unmuteTimer = s.clock.AfterFunc(s.cfg.MuteDuration, func() {
		s.unmute(identity, epoch)
	})

	s.recordAudit(room.ID, "", sess.DisplayName, AuditUserMuted, s.cfg.MuteDuration.String())
	s.logger.Info("User muted",
		zap.String("identity", identity),
		zap.String("room_id", room.ID),
		zap.Int("warnings", sess.Warnings),
		zap.Duration("duration", s.cfg.MuteDuration),
	)
}

func (s *Service) unmute(identity string, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok || sess.epoch != epoch || !sess.Muted {
		return
	}
	sess.Muted = false
	sess.unmuteTimer = nil
	s.send(identity, EventUnmuted, emptyPayload)
}
