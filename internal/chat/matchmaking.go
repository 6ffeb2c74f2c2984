package chat

import (
	"go.uber.org/zap"
)

const partnerRoomName = "Random Chat"

type pairing struct {
	partner string
	roomID  string
}

// RequestPartner pairs identity with the longest-waiting other identity, or
// queues it. A match allocates a private two-person room and sends
// chat-found to both sides; the clients then join it by code.
func (s *Service) RequestPartner(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isWaitingLocked(identity) {
		s.send(identity, EventWaitingForPartner, emptyPayload)
		return nil
	}
	if _, paired := s.pairs[identity]; paired {
		s.unpairLocked(identity)
	}

	if len(s.waiting) == 0 {
		s.waiting = append(s.waiting, identity)
		s.send(identity, EventWaitingForPartner, emptyPayload)
		return nil
	}

	code, err := s.allocateCodeLocked()
	if err != nil {
		return err
	}

	partner := s.waiting[0]
	s.waiting = s.waiting[1:]

	now := s.clock.Now()
	s.rooms[code] = &Room{
		ID:           code,
		Name:         partnerRoomName,
		Category:     CategoryChat,
		MaxUsers:     2,
		Duration:     DurationHour,
		CreatedAt:    now,
		LastActivity: now,
		IsModerated:  true,
		IsPrivate:    true,
	}

	s.pairs[identity] = pairing{partner: partner, roomID: code}
	s.pairs[partner] = pairing{partner: identity, roomID: code}

	payload := ChatFoundPayload{RoomID: code}
	s.send(identity, EventChatFound, payload)
	s.send(partner, EventChatFound, payload)

	s.logger.Debug("Partners matched",
		zap.String("room_id", code),
		zap.String("identity", identity),
		zap.String("partner", partner),
	)
	return nil
}

// Partner returns identity's current partner and shared room.
func (s *Service) Partner(identity string) (partner, roomID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pairs[identity]
	return p.partner, p.roomID, ok
}

// IsWaiting reports whether identity is queued for a partner.
func (s *Service) IsWaiting(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isWaitingLocked(identity)
}

func (s *Service) isWaitingLocked(identity string) bool {
	for _, w := range s.waiting {
		if w == identity {
			return true
		}
	}
	return false
}

// purgeMatchmakingLocked drops identity from the queue or tears its
// pairing down.
func (s *Service) purgeMatchmakingLocked(identity string) {
	for i, w := range s.waiting {
		if w == identity {
			s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
			return
		}
	}
	s.unpairLocked(identity)
}

// unpairLocked removes both sides of identity's pairing and tells the
// partner.
func (s *Service) unpairLocked(identity string) {
	p, ok := s.pairs[identity]
	if !ok {
		return
	}
	delete(s.pairs, identity)
	delete(s.pairs, p.partner)
	s.send(p.partner, EventPartnerLeft, emptyPayload)
}
