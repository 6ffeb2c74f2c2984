// Package chat is the room and session coordination core: the room
// registry, the join/leave state machine, message moderation, admin actions
// and random-partner matchmaking. All state lives in one Service guarded by
// a single mutex; outbound traffic leaves through a non-blocking Notifier.
package chat

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-demo/roomchat/internal/pkg/clock"
	"github.com/go-demo/roomchat/internal/pkg/ratelimit"
	"github.com/go-demo/roomchat/internal/pkg/utils"
)

// Config holds the tunables of the chat core.
type Config struct {
	GeneralRoomName     string
	GeneralRoomCapacity int
	MuteDuration        time.Duration
	WarningThreshold    int
	MaxHistory          int
	SnapshotSize        int
	MaxMessageLength    int
	BannedWords         []string
	PasswordCost        int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		GeneralRoomName:     "General Chat",
		GeneralRoomCapacity: 100,
		MuteDuration:        5 * time.Minute,
		WarningThreshold:    3,
		MaxHistory:          100,
		SnapshotSize:        50,
		MaxMessageLength:    1000,
		PasswordCost:        utils.DefaultCost,
	}
}

// Service owns every room, session and matchmaking entry of the process.
type Service struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	sessions map[string]*Session
	waiting  []string
	pairs    map[string]pairing
	epoch    uint64

	cfg      Config
	filter   *ProfanityFilter
	notifier Notifier
	limiter  ratelimit.Limiter
	clock    clock.Clock
	audit    AuditSink
	logger   *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithAuditSink records moderation actions to sink.
func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) { s.audit = sink }
}

// NewService creates the coordination core and its general room.
func NewService(cfg Config, notifier Notifier, limiter ratelimit.Limiter, logger *zap.Logger, opts ...Option) *Service {
	cfg = withDefaults(cfg)

	s := &Service{
		rooms:    make(map[string]*Room),
		sessions: make(map[string]*Session),
		pairs:    make(map[string]pairing),
		cfg:      cfg,
		filter:   NewProfanityFilter(cfg.BannedWords...),
		notifier: notifier,
		limiter:  limiter,
		clock:    clock.Real(),
		audit:    nopAuditSink{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewSlidingWindow(5, time.Hour, s.clock)
	}
	if s.notifier == nil {
		s.notifier = NotifierFunc(func(string, Event) {})
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	now := s.clock.Now()
	s.rooms[GeneralRoomCode] = &Room{
		ID:           GeneralRoomCode,
		Name:         cfg.GeneralRoomName,
		Category:     CategoryGeneral,
		MaxUsers:     cfg.GeneralRoomCapacity,
		Duration:     DurationUnlimited,
		CreatedAt:    now,
		LastActivity: now,
		IsModerated:  true,
		general:      true,
	}

	return s
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.GeneralRoomName == "" {
		cfg.GeneralRoomName = def.GeneralRoomName
	}
	if cfg.GeneralRoomCapacity <= 0 {
		cfg.GeneralRoomCapacity = def.GeneralRoomCapacity
	}
	if cfg.MuteDuration <= 0 {
		cfg.MuteDuration = def.MuteDuration
	}
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = def.WarningThreshold
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.SnapshotSize <= 0 {
		cfg.SnapshotSize = def.SnapshotSize
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.PasswordCost <= 0 {
		cfg.PasswordCost = def.PasswordCost
	}
	return cfg
}

// Filter returns the profanity filter used by the service.
func (s *Service) Filter() *ProfanityFilter {
	return s.filter
}

// Stats is a point-in-time count of the service's state.
type Stats struct {
	Rooms    int `json:"rooms"`
	Sessions int `json:"sessions"`
	Waiting  int `json:"waiting"`
	Pairs    int `json:"pairs"`
}

// Stats returns current counts.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Rooms:    len(s.rooms),
		Sessions: len(s.sessions),
		Waiting:  len(s.waiting),
		Pairs:    len(s.pairs) / 2,
	}
}

// Session returns a copy of identity's session.
func (s *Service) Session(identity string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return Session{}, false
	}
	out := *sess
	out.unmuteTimer = nil
	return out, true
}

// IsAdmin reports whether identity currently owns the room it is in.
func (s *Service) IsAdmin(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return false
	}
	return sess.IsAdmin(s.rooms[sess.RoomID])
}

// RoomMessages returns a copy of the history of the room with code.
func (s *Service) RoomMessages(code string) ([]Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[utils.NormalizeRoomCode(code)]
	if !ok {
		return nil, false
	}
	return room.Messages(), true
}

// RoomMembers returns the members of the room with code in join order.
func (s *Service) RoomMembers(code string) ([]MemberInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[utils.NormalizeRoomCode(code)]
	if !ok {
		return nil, false
	}
	return room.memberInfos(), true
}

func (s *Service) nextEpoch() uint64 {
	s.epoch++
	return s.epoch
}

// joinedRoomLocked returns identity's session and room. Either may be nil.
func (s *Service) joinedRoomLocked(identity string) (*Session, *Room) {
	sess, ok := s.sessions[identity]
	if !ok {
		return nil, nil
	}
	return sess, s.rooms[sess.RoomID]
}
