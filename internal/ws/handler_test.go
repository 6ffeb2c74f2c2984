package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-demo/roomchat/internal/chat"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type wsServer struct {
	*httptest.Server
	hub *Hub
	svc *chat.Service
}

func startTestServer(t *testing.T, cfg HandlerConfig) *wsServer {
	t.Helper()

	hub := NewHub(zap.NewNop())
	chatCfg := chat.DefaultConfig()
	chatCfg.PasswordCost = bcrypt.MinCost
	svc := chat.NewService(chatCfg, hub, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	handler := NewHandler(hub, svc, cfg, zap.NewNop())
	router := gin.New()
	router.GET("/ws", handler.ServeWS)
	router.GET("/api/v1/ws/stats", handler.GetStats)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &wsServer{Server: server, hub: hub, svc: svc}
}

func (s *wsServer) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal %s: %v", data, err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	server := startTestServer(t, HandlerConfig{})

	alice := server.dial(t, nil)
	bob := server.dial(t, nil)
	waitFor(t, func() bool { return server.hub.ClientCount() == 2 })

	writeFrame(t, alice, `{"type":"join-room","payload":{"username":"alice"}}`)
	if msg := readFrame(t, alice); msg.Type != "room-joined" {
		t.Fatalf("Expected room-joined, got %s", msg.Type)
	}

	writeFrame(t, bob, `{"type":"join-room","payload":{"username":"bob"}}`)
	if msg := readFrame(t, bob); msg.Type != "room-joined" {
		t.Fatalf("Expected room-joined, got %s", msg.Type)
	}
	if msg := readFrame(t, alice); msg.Type != "user-joined" {
		t.Fatalf("Expected user-joined, got %s", msg.Type)
	}

	writeFrame(t, bob, `{"type":"send-message","payload":{"message":"hi alice"}}`)
	msg := readFrame(t, alice)
	if msg.Type != "new-message" {
		t.Fatalf("Expected new-message, got %s", msg.Type)
	}
	var m chat.Message
	msg.ParsePayload(&m)
	if m.Text != "hi alice" || m.Username != "bob" {
		t.Errorf("Unexpected message %+v", m)
	}
	if msg := readFrame(t, bob); msg.Type != "new-message" {
		t.Errorf("Expected sender echo, got %s", msg.Type)
	}

	bob.Close()

	left := readFrame(t, alice)
	if left.Type != "user-left" {
		t.Fatalf("Expected user-left after disconnect, got %s", left.Type)
	}
	waitFor(t, func() bool { return server.hub.ClientCount() == 1 })
	if server.svc.Stats().Sessions != 1 {
		t.Errorf("Expected 1 session, got %d", server.svc.Stats().Sessions)
	}
}

func TestHandler_DisconnectClearsMatchmaking(t *testing.T) {
	server := startTestServer(t, HandlerConfig{})

	alice := server.dial(t, nil)
	writeFrame(t, alice, `{"type":"find-partner"}`)
	if msg := readFrame(t, alice); msg.Type != "waiting-for-partner" {
		t.Fatalf("Expected waiting-for-partner, got %s", msg.Type)
	}

	alice.Close()

	waitFor(t, func() bool { return server.svc.Stats().Waiting == 0 })
}

func TestHandler_OriginCheck(t *testing.T) {
	server := startTestServer(t, HandlerConfig{AllowedOrigins: []string{"https://chat.example.com"}})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	if err == nil {
		t.Fatal("Expected a foreign origin to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}

	server.dial(t, http.Header{"Origin": []string{"https://chat.example.com"}})
}

func TestHandler_FloodControl(t *testing.T) {
	server := startTestServer(t, HandlerConfig{MessageRate: 0.001, MessageBurst: 1})

	conn := server.dial(t, nil)
	writeFrame(t, conn, `{"type":"ping"}`)
	if msg := readFrame(t, conn); msg.Type != MessageTypePong {
		t.Fatalf("Expected pong, got %s", msg.Type)
	}

	writeFrame(t, conn, `{"type":"ping"}`)
	msg := readFrame(t, conn)
	var payload chat.ErrorPayload
	msg.ParsePayload(&payload)
	if msg.Type != "room-error" || payload.Kind != "rate_limit_exceeded" {
		t.Errorf("Expected rate limit error, got %s %+v", msg.Type, payload)
	}
}

func TestHandler_GetStats(t *testing.T) {
	server := startTestServer(t, HandlerConfig{})
	server.dial(t, nil)
	waitFor(t, func() bool { return server.hub.ClientCount() == 1 })

	resp, err := http.Get(server.URL + "/api/v1/ws/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool             `json:"success"`
		Data    map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !body.Success || body.Data["total_clients"] != 1 || body.Data["rooms"] != 1 {
		t.Errorf("Unexpected stats %+v", body)
	}
}
