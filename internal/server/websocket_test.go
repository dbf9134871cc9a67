package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mystery-night/internal/config"
	"mystery-night/internal/game"
	"mystery-night/internal/store"

	"github.com/gorilla/websocket"
)

func TestParseRoomWebsocketPath(t *testing.T) {
	cases := map[string]string{
		"/ws/rooms/ABCDEF":  "ABCDEF",
		"/ws/rooms/abcdef":  "ABCDEF",
		"/ws/rooms/ABCDEF/": "ABCDEF",
	}
	for path, expected := range cases {
		code, ok := parseRoomWebsocketPath(path)
		if !ok || code != expected {
			t.Fatalf("parse %q = %q, %v; expected %q", path, code, ok, expected)
		}
	}
	for _, path := range []string{"/ws/rooms/", "/ws/rooms/A/B", "/ws/other/ABCDEF"} {
		if _, ok := parseRoomWebsocketPath(path); ok {
			t.Fatalf("expected %q rejected", path)
		}
	}
}

func TestRoomWebsocketUnknownRoom(t *testing.T) {
	_, ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/NOSUCH"
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatalf("expected dial to fail for unknown room")
	} else if resp != nil && resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRoomWebsocketForwardsChanges(t *testing.T) {
	mem := store.NewMemory()
	srv := New(mem, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	room := &game.Room{Code: "ABCDEF", Status: game.StatusWaiting, Settings: game.Settings{PlayerCount: 4, Genre: game.GenreNoir, DurationMinutes: 60}}
	if err := mem.InsertRoom(ctx, room); err != nil {
		t.Fatalf("insert room: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/ABCDEF"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	defer conn.Close()

	// First frame is the current room snapshot.
	first := readEvent(t, conn)
	if first.Collection != store.CollectionRooms || first.Room == nil || first.Room.Code != "ABCDEF" {
		t.Fatalf("expected room snapshot, got %+v", first)
	}

	if err := mem.InsertMessage(ctx, &game.Message{RoomCode: "ABCDEF", SessionID: "s1", Nickname: "Ada", Content: "hello"}); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	event := readEvent(t, conn)
	if event.Collection != store.CollectionMessages || event.Type != store.EventInsert {
		t.Fatalf("expected message insert event, got %+v", event)
	}
	if event.Message == nil || event.Message.Content != "hello" {
		t.Fatalf("expected message payload, got %+v", event.Message)
	}

	if err := mem.UpdateRoomStatus(ctx, "ABCDEF", game.StatusGenerating, game.StatusWaiting); err != nil {
		t.Fatalf("update status: %v", err)
	}
	event = readEvent(t, conn)
	if event.Collection != store.CollectionRooms || event.Room == nil || event.Room.Status != game.StatusGenerating {
		t.Fatalf("expected room update event, got %+v", event)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws message: %v", err)
	}
	var event wsEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return event
}
