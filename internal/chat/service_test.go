package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-demo/roomchat/internal/pkg/clock"
	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
	"github.com/go-demo/roomchat/internal/pkg/ratelimit"
)

var testEpoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// recorder is a Notifier that keeps every event per identity.
type recorder struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]Event)}
}

func (r *recorder) Notify(identity string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[identity] = append(r.events[identity], event)
}

func (r *recorder) of(identity string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events[identity]...)
}

func (r *recorder) types(identity string) []EventType {
	var types []EventType
	for _, e := range r.of(identity) {
		types = append(types, e.Type)
	}
	return types
}

func (r *recorder) count(identity string, typ EventType) int {
	n := 0
	for _, e := range r.of(identity) {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) last(identity string, typ EventType) (Event, bool) {
	events := r.of(identity)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ {
			return events[i], true
		}
	}
	return Event{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[string][]Event)
}

type testEnv struct {
	svc   *Service
	rec   *recorder
	clock *clock.FakeClock
	audit *auditRecorder
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *auditRecorder) Record(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *auditRecorder) actions() []AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []AuditAction
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

func createTestService(t *testing.T) *testEnv {
	t.Helper()
	return createTestServiceWithConfig(t, DefaultConfig())
}

func createTestServiceWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	cfg.PasswordCost = bcrypt.MinCost
	clk := clock.Fake(testEpoch)
	rec := newRecorder()
	audit := &auditRecorder{}
	limiter := ratelimit.NewSlidingWindow(5, time.Hour, clk)

	svc := NewService(cfg, rec, limiter, zap.NewNop(), WithClock(clk), WithAuditSink(audit))
	return &testEnv{svc: svc, rec: rec, clock: clk, audit: audit}
}

func (e *testEnv) createRoom(t *testing.T, identity string, params CreateRoomParams) RoomSummary {
	t.Helper()
	if params.Username == "" {
		params.Username = identity
	}
	summary, err := e.svc.CreateRoom(context.Background(), identity, params)
	if err != nil {
		t.Fatalf("CreateRoom(%s) failed: %v", identity, err)
	}
	return summary
}

func (e *testEnv) join(t *testing.T, identity, code string) RoomSnapshot {
	t.Helper()
	snapshot, err := e.svc.Join(context.Background(), identity, JoinParams{Username: identity, RoomCode: code})
	if err != nil {
		t.Fatalf("Join(%s, %s) failed: %v", identity, code, err)
	}
	return snapshot
}

func (e *testEnv) send(t *testing.T, identity, text string) Message {
	t.Helper()
	msg, err := e.svc.SendMessage(identity, text)
	if err != nil {
		t.Fatalf("SendMessage(%s) failed: %v", identity, err)
	}
	return msg
}

// insertRoom places an empty room directly into the registry.
func (e *testEnv) insertRoom(code string, duration Duration, createdAt time.Time) *Room {
	e.svc.mu.Lock()
	defer e.svc.mu.Unlock()

	room := &Room{
		ID:           code,
		Name:         "Fixture " + code,
		Category:     CategoryOther,
		MaxUsers:     DefaultMaxUsers,
		Duration:     duration,
		CreatedAt:    createdAt,
		LastActivity: createdAt,
		IsModerated:  true,
	}
	e.svc.rooms[code] = room
	return room
}

func (e *testEnv) hasRoom(code string) bool {
	_, ok := e.svc.FindRoom(code)
	return ok
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Expected error %v, got %v", target, err)
	}
}

func TestNewService_CreatesGeneralRoom(t *testing.T) {
	env := createTestService(t)

	summary, ok := env.svc.FindRoom(GeneralRoomCode)
	if !ok {
		t.Fatal("Expected general room to exist")
	}
	if !summary.IsGeneral {
		t.Error("Expected general flag")
	}
	if summary.PasswordProtected {
		t.Error("General room must not be password protected")
	}
	if summary.MaxUsers != 100 {
		t.Errorf("Expected general capacity 100, got %d", summary.MaxUsers)
	}
	if summary.ExpiresAt != nil {
		t.Error("General room must never expire")
	}
	if !summary.IsModerated {
		t.Error("Expected general room to be moderated")
	}
}

func TestNewService_GeneralCapacityFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GeneralRoomCapacity = 3
	env := createTestServiceWithConfig(t, cfg)

	summary, _ := env.svc.FindRoom("general")
	if summary.MaxUsers != 3 {
		t.Errorf("Expected capacity 3, got %d", summary.MaxUsers)
	}
}

func TestNewService_NilCollaborators(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil)

	if _, err := svc.Join(context.Background(), "conn-1", JoinParams{Username: "alice"}); err != nil {
		t.Fatalf("Join with default collaborators failed: %v", err)
	}
	if svc.Stats().Sessions != 1 {
		t.Errorf("Expected 1 session, got %d", svc.Stats().Sessions)
	}
}

func TestStats(t *testing.T) {
	env := createTestService(t)
	env.createRoom(t, "alice", CreateRoomParams{Name: "Alpha"})
	env.join(t, "bob", "")
	env.svc.RequestPartner("carol")

	stats := env.svc.Stats()
	if stats.Rooms != 2 {
		t.Errorf("Expected 2 rooms, got %d", stats.Rooms)
	}
	if stats.Sessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", stats.Sessions)
	}
	if stats.Waiting != 1 {
		t.Errorf("Expected 1 waiting, got %d", stats.Waiting)
	}
}

func TestErrorEvent(t *testing.T) {
	event := ErrorEvent(apperrors.ErrRoomFull)

	if event.Type != EventRoomError {
		t.Fatalf("Expected room-error, got %s", event.Type)
	}
	payload := event.Payload.(ErrorPayload)
	if payload.Kind != apperrors.KindRoomFull {
		t.Errorf("Expected kind %s, got %s", apperrors.KindRoomFull, payload.Kind)
	}
	if payload.Code != 422 {
		t.Errorf("Expected code 422, got %d", payload.Code)
	}

	internal := ErrorEvent(errors.New("boom")).Payload.(ErrorPayload)
	if internal.Kind != apperrors.KindInternal {
		t.Errorf("Expected internal kind for unknown errors, got %s", internal.Kind)
	}
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "owner", CreateRoomParams{Name: "Crowded", MaxUsers: 5})

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := "conn-" + string(rune('a'+i))
			_, err := env.svc.Join(context.Background(), identity, JoinParams{Username: "user-" + string(rune('a'+i)), RoomCode: room.ID})
			if err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
			} else if !errors.Is(err, apperrors.ErrRoomFull) {
				t.Errorf("Unexpected join error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if joined != 4 {
		t.Errorf("Expected 4 successful joins, got %d", joined)
	}
	summary, _ := env.svc.FindRoom(room.ID)
	if summary.UserCount != 5 {
		t.Errorf("Expected 5 members, got %d", summary.UserCount)
	}
}
