package chat

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	apperrors "github.com/go-demo/roomchat/internal/pkg/errors"
)

func TestJoin_GeneralByDefault(t *testing.T) {
	env := createTestService(t)

	snapshot := env.join(t, "alice", "")
	if snapshot.RoomID != GeneralRoomCode {
		t.Errorf("Expected general room, got %s", snapshot.RoomID)
	}
	if snapshot.IsAdmin {
		t.Error("Generic joins never grant admin")
	}

	snapshot, err := env.svc.Join(context.Background(), "bob", JoinParams{Username: "bob", RoomCode: "IGNORE", RoomType: RoomTypeGeneral})
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if snapshot.RoomID != GeneralRoomCode {
		t.Errorf("Expected room type general to win over the code, got %s", snapshot.RoomID)
	}
}

func TestJoin_GuestName(t *testing.T) {
	env := createTestService(t)

	snapshot, err := env.svc.Join(context.Background(), "conn-1", JoinParams{Username: "   "})
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !strings.HasPrefix(snapshot.Username, "Guest-") {
		t.Errorf("Expected a guest name, got %q", snapshot.Username)
	}
}

func TestJoin_ConcurrentGuestsComplete(t *testing.T) {
	env := createTestService(t)

	const guests = 10
	done := make(chan error, guests)
	for i := 0; i < guests; i++ {
		id := "conn-" + strconv.Itoa(i)
		go func() {
			_, err := env.svc.Join(context.Background(), id, JoinParams{})
			done <- err
		}()
	}

	timeout := time.After(3 * time.Second)
	for i := 0; i < guests; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Join failed: %v", err)
			}
		case <-timeout:
			t.Fatalf("Only %d of %d guest joins finished within 3s", i, guests)
		}
	}
	if stats := env.svc.Stats(); stats.Sessions != guests {
		t.Errorf("Expected %d sessions, got %d", guests, stats.Sessions)
	}
}

func TestJoin_DisplayNameValidation(t *testing.T) {
	env := createTestService(t)

	_, err := env.svc.Join(context.Background(), "conn-1", JoinParams{Username: "ab"})
	assertErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.svc.Join(context.Background(), "conn-1", JoinParams{Username: strings.Repeat("a", 21)})
	assertErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.svc.Join(context.Background(), "conn-1", JoinParams{Username: "KufurKing"})
	assertErrorIs(t, err, apperrors.ErrContentRejected)

	if env.svc.Stats().Sessions != 0 {
		t.Error("Rejected joins must not create sessions")
	}
}

func TestJoin_RoomNotFound(t *testing.T) {
	env := createTestService(t)

	_, err := env.svc.Join(context.Background(), "alice", JoinParams{Username: "alice", RoomCode: "ZZZZZZ"})
	assertErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestJoin_CaseInsensitiveCode(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Lower"})

	snapshot := env.join(t, "bob", strings.ToLower(room.ID))
	if snapshot.RoomID != room.ID {
		t.Errorf("Expected %s, got %s", room.ID, snapshot.RoomID)
	}
}

func TestJoin_Password(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Vault", Password: "opensesame"})

	_, err := env.svc.Join(context.Background(), "bob", JoinParams{Username: "bob", RoomCode: room.ID, Password: "wrong"})
	assertErrorIs(t, err, apperrors.ErrWrongPassword)

	_, err = env.svc.Join(context.Background(), "bob", JoinParams{Username: "bob", RoomCode: room.ID})
	assertErrorIs(t, err, apperrors.ErrWrongPassword)

	if summary, _ := env.svc.FindRoom(room.ID); summary.UserCount != 1 {
		t.Errorf("Wrong password must not add a member, count = %d", summary.UserCount)
	}
	if env.rec.count("alice", EventUserJoined) != 0 {
		t.Error("Members must not be told about a failed join")
	}

	if _, err := env.svc.Join(context.Background(), "bob", JoinParams{Username: "bob", RoomCode: room.ID, Password: "opensesame"}); err != nil {
		t.Fatalf("Expected correct password to succeed, got %v", err)
	}
}

func TestJoin_RoomFull(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Pair", MaxUsers: 2})
	env.join(t, "bob", room.ID)

	_, err := env.svc.Join(context.Background(), "carol", JoinParams{Username: "carol", RoomCode: room.ID})
	assertErrorIs(t, err, apperrors.ErrRoomFull)

	if summary, _ := env.svc.FindRoom(room.ID); summary.UserCount != 2 || summary.Status != RoomStatusFull {
		t.Errorf("Expected full room with 2 members, got %+v", summary)
	}
}

func TestJoin_AlreadyMember(t *testing.T) {
	env := createTestService(t)
	env.join(t, "alice", "")

	_, err := env.svc.Join(context.Background(), "alice", JoinParams{Username: "alice"})
	assertErrorIs(t, err, apperrors.ErrAlreadyRoomMember)

	if summary, _ := env.svc.FindRoom(GeneralRoomCode); summary.UserCount != 1 {
		t.Errorf("Expected single membership, got %d", summary.UserCount)
	}
}

func TestJoin_FailedJoinKeepsCurrentRoom(t *testing.T) {
	env := createTestService(t)
	full := env.createRoom(t, "alice", CreateRoomParams{Name: "Tiny", MaxUsers: 2})
	env.join(t, "bob", full.ID)
	env.join(t, "carol", "")

	_, err := env.svc.Join(context.Background(), "carol", JoinParams{Username: "carol", RoomCode: full.ID})
	assertErrorIs(t, err, apperrors.ErrRoomFull)

	sess, ok := env.svc.Session("carol")
	if !ok || sess.RoomID != GeneralRoomCode {
		t.Errorf("Expected carol to remain in general, got %+v", sess)
	}
}

func TestJoin_MovesBetweenRooms(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Elsewhere"})
	env.join(t, "bob", room.ID)
	env.join(t, "carol", room.ID)
	env.rec.reset()

	env.join(t, "carol", "")

	left, ok := env.rec.last("bob", EventUserLeft)
	if !ok {
		t.Fatal("Expected bob to see carol leave")
	}
	if p := left.Payload.(PresencePayload); p.Username != "carol" || p.UserCount != 2 {
		t.Errorf("Unexpected payload %+v", p)
	}
	if sess, _ := env.svc.Session("carol"); sess.RoomID != GeneralRoomCode {
		t.Errorf("Expected carol in general, got %s", sess.RoomID)
	}
	if summary, _ := env.svc.FindRoom(room.ID); summary.UserCount != 2 {
		t.Errorf("Expected 2 members left behind, got %d", summary.UserCount)
	}
}

func TestJoin_NotifiesOthers(t *testing.T) {
	env := createTestService(t)
	env.join(t, "alice", "")
	env.join(t, "bob", "")

	event, ok := env.rec.last("alice", EventUserJoined)
	if !ok {
		t.Fatal("Expected user-joined for alice")
	}
	if p := event.Payload.(PresencePayload); p.Username != "bob" || p.UserCount != 2 {
		t.Errorf("Unexpected payload %+v", p)
	}
	if env.rec.count("bob", EventUserJoined) != 0 {
		t.Error("The joiner must not receive its own user-joined")
	}

	joined, _ := env.rec.last("bob", EventRoomJoined)
	users := joined.Payload.(RoomSnapshot).Users
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "bob" {
		t.Errorf("Expected member list in join order, got %+v", users)
	}
}

func TestJoin_SnapshotHasLastFiftyMessages(t *testing.T) {
	env := createTestService(t)
	env.join(t, "alice", "")
	for i := 1; i <= 60; i++ {
		env.send(t, "alice", "message "+strconv.Itoa(i))
	}

	snapshot := env.join(t, "bob", "")
	if len(snapshot.Messages) != 50 {
		t.Fatalf("Expected 50 messages, got %d", len(snapshot.Messages))
	}
	if snapshot.Messages[0].Text != "message 11" || snapshot.Messages[49].Text != "message 60" {
		t.Errorf("Expected messages 11..60, got %q..%q", snapshot.Messages[0].Text, snapshot.Messages[49].Text)
	}
}

func TestLeave_Idempotent(t *testing.T) {
	env := createTestService(t)

	env.svc.Leave("nobody")
	if len(env.rec.of("nobody")) != 0 {
		t.Error("Leaving while unjoined must be a no-op")
	}

	env.join(t, "alice", "")
	env.svc.Leave("alice")
	env.svc.Leave("alice")

	if env.rec.count("alice", EventRoomLeft) != 1 {
		t.Errorf("Expected exactly one room-left ack, got %d", env.rec.count("alice", EventRoomLeft))
	}
	if _, ok := env.svc.Session("alice"); ok {
		t.Error("Expected session to be destroyed")
	}
}

func TestLeave_AdminHandoff(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Handoff"})
	env.join(t, "bob", room.ID)
	env.join(t, "carol", room.ID)
	env.rec.reset()

	env.svc.Leave("alice")

	if !env.svc.IsAdmin("bob") {
		t.Fatal("Expected the earliest-joined member to be promoted")
	}
	if env.svc.IsAdmin("carol") {
		t.Error("Exactly one member may be admin")
	}
	if env.rec.count("bob", EventPromotedToAdmin) != 1 {
		t.Error("Expected promoted-to-admin for bob")
	}
	if env.rec.count("bob", EventNewAdmin) != 0 {
		t.Error("The promoted member gets promoted-to-admin, not new-admin")
	}
	event, ok := env.rec.last("carol", EventNewAdmin)
	if !ok || event.Payload.(NewAdminPayload).Username != "bob" {
		t.Errorf("Expected carol to learn bob is admin, got %+v", event)
	}
	if env.rec.count("carol", EventPromotedToAdmin) != 0 {
		t.Error("Only one member may be promoted")
	}

	members, _ := env.svc.RoomMembers(room.ID)
	admins := 0
	for _, m := range members {
		if m.IsAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Errorf("Expected exactly one admin in member list, got %d", admins)
	}
}

func TestLeave_NonAdminKeepsAdmin(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Stable"})
	env.join(t, "bob", room.ID)

	env.svc.Leave("bob")

	if !env.svc.IsAdmin("alice") {
		t.Error("Admin must not change when a regular member leaves")
	}
	if env.rec.count("alice", EventNewAdmin) != 0 {
		t.Error("No admin events expected")
	}
}

func TestLeave_LastMemberDeletesRoom(t *testing.T) {
	env := createTestService(t)
	room := env.createRoom(t, "alice", CreateRoomParams{Name: "Solo"})

	env.svc.Leave("alice")

	if env.hasRoom(room.ID) {
		t.Error("Expected empty non-general room to be deleted")
	}
}

func TestLeave_GeneralRoomSurvivesEmpty(t *testing.T) {
	env := createTestService(t)
	env.join(t, "alice", "")

	env.svc.Leave("alice")

	summary, ok := env.svc.FindRoom(GeneralRoomCode)
	if !ok {
		t.Fatal("General room must never be deleted")
	}
	if summary.UserCount != 0 {
		t.Errorf("Expected empty general room, got %d", summary.UserCount)
	}
}

func TestDisconnect(t *testing.T) {
	env := createTestService(t)
	env.join(t, "alice", "")
	env.join(t, "bob", "")

	env.svc.Disconnect("alice")

	if _, ok := env.svc.Session("alice"); ok {
		t.Error("Expected session destroyed")
	}
	if env.rec.count("bob", EventUserLeft) != 1 {
		t.Error("Expected bob to see alice leave")
	}
	if env.rec.count("alice", EventRoomLeft) != 0 {
		t.Error("A closed connection gets no ack")
	}

	env.svc.Disconnect("alice")
	env.svc.Disconnect("never-joined")
}

func TestTyping(t *testing.T) {
	env := createTestService(t)
	env.join(t, "alice", "")
	env.join(t, "bob", "")

	env.svc.Typing("alice", true)
	env.svc.Typing("alice", false)

	if env.rec.count("alice", EventUserTyping) != 0 {
		t.Error("Typing must not echo to the typist")
	}
	event, ok := env.rec.last("bob", EventUserTyping)
	if !ok || event.Payload.(TypingPayload).Username != "alice" {
		t.Errorf("Expected user-typing from alice, got %+v", event)
	}
	if env.rec.count("bob", EventUserStopTyping) != 1 {
		t.Error("Expected user-stop-typing")
	}

	env.svc.Typing("ghost", true)
}

// Create a two-seat room, fill it, reject a third, exchange a message,
// hand admin over and finally delete the room when it empties.
func TestScenario_TwoSeatRoomLifecycle(t *testing.T) {
	env := createTestService(t)

	room := env.createRoom(t, "conn-a", CreateRoomParams{Username: "alice", Name: "Test Room", MaxUsers: 2})
	if _, err := env.svc.Join(context.Background(), "conn-b", JoinParams{Username: "bobby", RoomCode: room.ID}); err != nil {
		t.Fatalf("B join failed: %v", err)
	}
	_, err := env.svc.Join(context.Background(), "conn-c", JoinParams{Username: "carol", RoomCode: room.ID})
	assertErrorIs(t, err, apperrors.ErrRoomFull)

	env.send(t, "conn-a", "hello")
	event, ok := env.rec.last("conn-b", EventNewMessage)
	if !ok || event.Payload.(Message).Text != "hello" {
		t.Fatalf("Expected B to receive hello, got %+v", event)
	}

	env.svc.Leave("conn-a")
	if env.rec.count("conn-b", EventPromotedToAdmin) != 1 {
		t.Fatal("Expected B to be promoted")
	}
	if !env.svc.IsAdmin("conn-b") {
		t.Error("Expected B to be admin")
	}

	env.svc.Leave("conn-b")
	if env.hasRoom(room.ID) {
		t.Error("Expected the room to be deleted once empty")
	}
}
