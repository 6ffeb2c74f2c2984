package chat

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
	"github.com/go-demo/roomchat/internal/pkg/utils"
)

// RoomTypeGeneral selects the general room regardless of the code.
const RoomTypeGeneral = "general"

// JoinParams is a client's request to enter a room.
type JoinParams struct {
	Username string
	RoomCode string
	RoomType string
	Password string
}

func (p JoinParams) code() string {
	code := utils.NormalizeRoomCode(p.RoomCode)
	if p.RoomType == RoomTypeGeneral || code == "" {
		return GeneralRoomCode
	}
	return code
}

// Join puts identity into the selected room. Checks run in order: the room
// exists, the password matches, identity is not already a member, the room
// has space. Only after every check passes does identity leave its current
// room. The joiner receives room-joined and the other members user-joined.
func (s *Service) Join(ctx context.Context, identity string, params JoinParams) (RoomSnapshot, error) {
	displayName, err := s.resolveDisplayName(params.Username, true)
	if err != nil {
		return RoomSnapshot{}, err
	}

	code := params.code()
	room, err := s.authorizeJoin(code, params.Password)
	if err != nil {
		return RoomSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The room may have been deleted, or replaced under the same code,
	// while the password was being checked.
	if current, ok := s.rooms[code]; !ok || current != room {
		return RoomSnapshot{}, apperrors.ErrRoomNotFound
	}
	if sess, ok := s.sessions[identity]; ok && sess.RoomID == room.ID {
		return RoomSnapshot{}, apperrors.ErrAlreadyRoomMember
	}
	if room.IsFull() {
		return RoomSnapshot{}, apperrors.ErrRoomFull
	}

	s.leaveLocked(identity, true)
	s.enterLocked(identity, displayName, room)

	snapshot := s.snapshotLocked(identity, room)
	s.send(identity, EventRoomJoined, snapshot)
	s.broadcastExcept(room, identity, EventUserJoined, PresencePayload{
		Username:  displayName,
		UserCount: room.MemberCount(),
	})

	s.logger.Debug("User joined room",
		zap.String("identity", identity),
		zap.String("username", displayName),
		zap.String("room_id", room.ID),
		zap.Int("user_count", room.MemberCount()),
	)

	return snapshot, nil
}

// authorizeJoin resolves code and verifies the password. The bcrypt
// comparison runs without the state lock; callers must re-validate the
// returned room after locking.
func (s *Service) authorizeJoin(code, password string) (*Room, error) {
	s.mu.Lock()
	room, ok := s.rooms[code]
	var hash string
	if ok {
		hash = room.passwordHash
	}
	s.mu.Unlock()

	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	if hash != "" && (password == "" || !utils.CheckPassword(password, hash)) {
		return nil, apperrors.ErrWrongPassword
	}
	return room, nil
}

// Leave removes identity from its room and acknowledges with room-left.
// It is a no-op when identity is not joined.
func (s *Service) Leave(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, sess := s.leaveLocked(identity, true)
	if sess == nil {
		return
	}
	roomID := sess.RoomID
	if room != nil {
		roomID = room.ID
	}
	s.send(identity, EventRoomLeft, RoomLeftPayload{RoomID: roomID})
}

// Disconnect drops every trace of identity: its membership, any waiting
// matchmaking entry and any active pairing.
func (s *Service) Disconnect(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaveLocked(identity, true)
	s.purgeMatchmakingLocked(identity)
}

// Typing relays a typing indicator to the other members of identity's
// room. It is ignored when identity is not joined.
func (s *Service) Typing(identity string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, room := s.joinedRoomLocked(identity)
	if room == nil {
		return
	}

	typ := EventUserStopTyping
	if active {
		typ = EventUserTyping
	}
	s.broadcastExcept(room, identity, typ, TypingPayload{Username: sess.DisplayName})
}

func (s *Service) enterLocked(identity, displayName string, room *Room) *Session {
	now := s.clock.Now()
	sess := &Session{
		Identity:    identity,
		DisplayName: displayName,
		RoomID:      room.ID,
		JoinedAt:    now,
		epoch:       s.nextEpoch(),
	}
	s.sessions[identity] = sess
	room.addMember(sess)
	room.touch(now)
	return sess
}

// leaveLocked destroys identity's session. With announce the remaining
// members get user-left. Admin handoff and empty-room deletion follow.
func (s *Service) leaveLocked(identity string, announce bool) (*Room, *Session) {
	sess, ok := s.sessions[identity]
	if !ok {
		return nil, nil
	}

	if sess.unmuteTimer != nil {
		sess.unmuteTimer.Stop()
		sess.unmuteTimer = nil
	}
	delete(s.sessions, identity)

	room, ok := s.rooms[sess.RoomID]
	if !ok {
		return nil, sess
	}
	room.removeMember(identity)

	if p, paired := s.pairs[identity]; paired && p.roomID == room.ID {
		s.unpairLocked(identity)
	}

	if announce {
		s.broadcast(room, EventUserLeft, PresencePayload{
			Username:  sess.DisplayName,
			UserCount: room.MemberCount(),
		})
	}

	if room.Admin == identity {
		s.handoffAdminLocked(room)
	}

	if room.IsEmpty() && !room.general {
		s.deleteRoomLocked(room, "empty")
	}

	return room, sess
}

// handoffAdminLocked promotes the earliest-joined remaining member.
func (s *Service) handoffAdminLocked(room *Room) {
	if room.IsEmpty() {
		room.Admin = ""
		return
	}

	next := room.members[0]
	previous := room.Admin
	room.Admin = next.Identity

	s.send(next.Identity, EventPromotedToAdmin, emptyPayload)
	s.broadcastExcept(room, next.Identity, EventNewAdmin, NewAdminPayload{Username: next.DisplayName})

	s.recordAudit(room.ID, previous, next.DisplayName, AuditAdminTransferred, "")
	s.logger.Info("Room admin transferred",
		zap.String("room_id", room.ID),
		zap.String("new_admin", next.Identity),
	)
}

func (s *Service) snapshotLocked(identity string, room *Room) RoomSnapshot {
	var username string
	if sess, ok := s.sessions[identity]; ok {
		username = sess.DisplayName
	}
	return RoomSnapshot{
		RoomID:   room.ID,
		RoomName: room.Name,
		Username: username,
		IsAdmin:  room.Admin == identity,
		Room:     room.Summary(),
		Users:    room.memberInfos(),
		Messages: room.recentMessages(s.cfg.SnapshotSize),
	}
}
