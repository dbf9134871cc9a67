package client

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mystery-night/internal/store"
)

func TestHandleInputHelp(t *testing.T) {
	st := store.NewMemory()
	var notices []string
	c := New(st, fixedGenerator(3, 0), NewSessionStore(""), DefaultConfig(), Handlers{
		OnNotice: func(text string) { notices = append(notices, text) },
	})
	t.Cleanup(c.Close)

	if err := c.HandleInput(context.Background(), "/help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if len(notices) != 1 || !strings.Contains(notices[0], "/investigate") {
		t.Fatalf("expected help notice, got %v", notices)
	}
}

func TestHandleInputParseErrors(t *testing.T) {
	st := store.NewMemory()
	c := newTestClient(t, st, fixedGenerator(3, 0))
	ctx := context.Background()

	if err := c.HandleInput(ctx, "/vote abc"); err == nil {
		t.Fatalf("expected usage error for /vote abc")
	}
	if err := c.HandleInput(ctx, "/clue abc"); err == nil {
		t.Fatalf("expected usage error for /clue abc")
	}
	if err := c.HandleInput(ctx, "/teleport"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := c.HandleInput(ctx, "   "); err != nil {
		t.Fatalf("blank input should be ignored, got %v", err)
	}
}

func TestHandleInputStartVoteRequiresHost(t *testing.T) {
	st := store.NewMemory()
	clients := startedGame(t, st, 3, 0)

	if err := clients[1].HandleInput(context.Background(), "/startvote"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := clients[0].HandleInput(context.Background(), "/startvote"); err != nil {
		t.Fatalf("host startvote: %v", err)
	}
}

func TestHandleInputChatSendsMessage(t *testing.T) {
	st := store.NewMemory()
	clients := startedGame(t, st, 3, 0)

	if err := clients[0].HandleInput(context.Background(), "the butler looks nervous"); err != nil {
		t.Fatalf("chat input: %v", err)
	}
	waitFor(t, "message delivered", func() bool {
		return len(clients[1].Messages()) == 1
	})
	if got := clients[1].Messages()[0].Content; got != "the butler looks nervous" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestHandleInputVoteUsesOneBasedNumbers(t *testing.T) {
	st := store.NewMemory()
	clients := startedGame(t, st, 3, 1)
	ctx := context.Background()

	if err := clients[0].StartVoting(ctx); err != nil {
		t.Fatalf("start voting: %v", err)
	}
	if err := clients[0].HandleInput(ctx, "/vote 2"); err != nil {
		t.Fatalf("vote command: %v", err)
	}

	room, err := st.GetRoom(ctx, clients[0].Session().RoomCode)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got := room.Votes[clients[0].Session().SessionID]; got != 1 {
		t.Fatalf("expected character index 1 recorded, got %d", got)
	}
}
