package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/session"
)

func testView(sessionID string, x, y int) session.View {
	return session.View{
		SessionID: sessionID,
		ThemeID:   "meadow",
		State:     session.Exploring,
		Outcome:   session.OutcomeMoved,
		Game:      &engine.GameState{ThemeID: "meadow", PlayerPos: engine.Position{X: x, Y: y}},
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{hub: hub, sessionID: "test-session", send: make(chan []byte, sendBuffer)}
	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{hub: hub, sessionID: "test-session", send: make(chan []byte, sendBuffer)}
	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected the send channel to be closed")
	}

	// Unregistering twice is harmless
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, sendBuffer)}
	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: sessionID, Event: EventView})
	if len(client1.send) != 1 || len(client2.send) != 1 {
		t.Error("Expected both session clients to receive the message")
	}
	if len(other.send) != 0 {
		t.Error("Clients of other sessions must not receive the message")
	}

	hub.unregisterClient(client1)
	if !hub.sessions[sessionID][client2] || len(hub.sessions[sessionID]) != 1 {
		t.Error("client2 should still be registered")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "slow", Event: EventView})
	hub.broadcastMessage(&Message{SessionID: "slow", Event: EventView})

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("Expected a client with a full queue to be dropped")
	}
}

func TestHubBroadcastView(t *testing.T) {
	hub := NewHub()
	hub.BroadcastView(testView("abcd", 3, 5))

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "abcd" || message.Event != EventView {
			t.Errorf("Unexpected message %+v", message)
		}
		if message.View.Game.PlayerPos.X != 3 || message.View.Game.PlayerPos.Y != 5 {
			t.Error("View not correctly queued")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message queued")
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			hub.BroadcastEvent("full", "tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(sessionID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients in %s, got %d", want, sessionID, hub.ClientCount(sessionID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		initial := testView(id, 1, 1)
		hub.ServeWS(w, r, id, &initial)
	}))
	defer server.Close()

	conn := dial(t, server, "ws-test")
	defer conn.Close()

	snapshot := readMessage(t, conn)
	if snapshot.Event != EventSnapshot || snapshot.View == nil || snapshot.View.SessionID != "ws-test" {
		t.Fatalf("Expected an initial snapshot, got %+v", snapshot)
	}
	waitForClients(t, hub, "ws-test", 1)

	hub.BroadcastView(testView("ws-test", 10, 15))
	hub.BroadcastView(testView("someone-else", 0, 0))

	message := readMessage(t, conn)
	if message.Event != EventView || message.View.Game.PlayerPos != (engine.Position{X: 10, Y: 15}) {
		t.Errorf("Unexpected broadcast %+v", message)
	}
	if message.View.State != session.Exploring {
		t.Errorf("Expected the state to survive encoding, got %s", message.View.State)
	}

	conn.Close()
	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"), nil)
	}))
	defer server.Close()

	conn := dial(t, server, "bye")
	defer conn.Close()
	waitForClients(t, hub, "bye", 1)

	cancel()
	<-stopped

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed on shutdown")
	}
}
