package store

import (
	"context"
	"errors"
	"fmt"

	"mystery-night/internal/game"
)

// Collections mirror the three tables every client coordinates through.
type Collection string

const (
	CollectionRooms    Collection = "rooms"
	CollectionPlayers  Collection = "players"
	CollectionMessages Collection = "messages"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNicknameTaken = errors.New("nickname already taken")
	ErrCodeTaken     = errors.New("room code already taken")
	ErrConflict      = errors.New("conflict")
)

// Change is one row-level change notification. Synchronizers must not
// trust the payload ordering for players; they re-read the roster instead.
type Change struct {
	Collection Collection
	Type       EventType
	RoomCode   string
	Room       *game.Room
	Player     *game.Player
	Message    *game.Message
}

// Fields is a field-level write keyed by persisted column name
// (status, scenario, votes, host_id, is_host, character_index).
type Fields map[string]any

// validateStatusWrite rejects status writes that name an unknown status
// or an illegal lifecycle edge before they reach the backend. A from
// value equal to to stays legal so repeated writes remain no-ops.
func validateStatusWrite(to string, from []string) error {
	if !game.ValidStatus(to) {
		return fmt.Errorf("invalid status value: %s", to)
	}
	for _, status := range from {
		if status != to && !game.CanTransition(status, to) {
			return fmt.Errorf("illegal status transition %s to %s", status, to)
		}
	}
	return nil
}

// Store is the narrow document-store surface the coordination core runs
// on: point reads, field-level writes, conditional writes and change
// subscriptions. All shared state flows through it; there is no other
// channel between clients.
type Store interface {
	GetRoom(ctx context.Context, code string) (*game.Room, error)
	InsertRoom(ctx context.Context, room *game.Room) error
	// UpdateRoom overwrites the named fields of a room.
	UpdateRoom(ctx context.Context, code string, fields Fields) error
	// UpdateRoomIf overwrites the named fields only while the room's
	// version still equals version. Every committed room write bumps the
	// version, so ErrConflict means the caller's read went stale and the
	// read-modify-write must be repeated.
	UpdateRoomIf(ctx context.Context, code string, version int64, fields Fields) error
	// UpdateRoomStatus writes status=to only when the current status is
	// one of from. Writing the status a room already has is a no-op
	// success, which keeps concurrent phase advancement idempotent.
	UpdateRoomStatus(ctx context.Context, code, to string, from ...string) error

	ListPlayers(ctx context.Context, code string) ([]game.Player, error)
	CountPlayers(ctx context.Context, code string) (int, error)
	GetPlayer(ctx context.Context, code, sessionID string) (*game.Player, error)
	InsertPlayer(ctx context.Context, player *game.Player) error
	UpdatePlayer(ctx context.Context, id uint, fields Fields) error
	DeletePlayer(ctx context.Context, id uint) error
	// ClaimHost promotes the player only while the room's roster holds no
	// host. Claiming a seat the player already holds succeeds; claiming
	// while another host exists fails with ErrConflict.
	ClaimHost(ctx context.Context, code string, playerID uint) error

	InsertMessage(ctx context.Context, message *game.Message) error
	ListMessages(ctx context.Context, code string) ([]game.Message, error)

	// Subscribe opens a change feed for one collection scoped to a room
	// code. The caller owns the subscription and must Close it.
	Subscribe(collection Collection, roomCode string) (*Subscription, error)
}
