package chat

// Fan-out helpers. Every call happens with s.mu held so recipients observe
// events in the same order as the state changes that caused them.

var emptyPayload = struct{}{}

func (s *Service) send(identity string, typ EventType, payload interface{}) {
	s.notifier.Notify(identity, Event{Type: typ, Payload: payload})
}

// broadcast delivers to every member of room, sender included.
func (s *Service) broadcast(room *Room, typ EventType, payload interface{}) {
	for _, m := range room.members {
		s.send(m.Identity, typ, payload)
	}
}

// broadcastExcept delivers to every member of room but one.
func (s *Service) broadcastExcept(room *Room, except string, typ EventType, payload interface{}) {
	for _, m := range room.members {
		if m.Identity != except {
			s.send(m.Identity, typ, payload)
		}
	}
}
