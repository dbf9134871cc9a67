package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mystery-night/internal/game"
)

// Memory is an in-process Store with the same semantics the postgres
// implementation provides: point reads, field-level writes, conditional
// writes and room-scoped change notifications. Tests and single-node
// deployments run on it.
type Memory struct {
	mu            sync.Mutex
	feed          *feed
	nextPlayerID  uint
	nextMessageID uint
	rooms         map[string]*game.Room
	players       map[uint]*game.Player
	messages      map[string][]game.Message
}

func NewMemory() *Memory {
	return &Memory{
		feed:          newFeed(),
		nextPlayerID:  1,
		nextMessageID: 1,
		rooms:         make(map[string]*game.Room),
		players:       make(map[uint]*game.Player),
		messages:      make(map[string][]game.Message),
	}
}

func (m *Memory) GetRoom(ctx context.Context, code string) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRoom(room), nil
}

func (m *Memory) InsertRoom(ctx context.Context, room *game.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[room.Code]; exists {
		return ErrCodeTaken
	}
	stored := cloneRoom(room)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	m.rooms[room.Code] = stored
	return nil
}

func (m *Memory) UpdateRoom(ctx context.Context, code string, fields Fields) error {
	m.mu.Lock()
	room, ok := m.rooms[code]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if err := applyRoomFields(room, fields); err != nil {
		m.mu.Unlock()
		return err
	}
	room.Version++
	room.UpdatedAt = time.Now().UTC()
	updated := cloneRoom(room)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionRooms,
		Type:       EventUpdate,
		RoomCode:   code,
		Room:       updated,
	})
	return nil
}

func (m *Memory) UpdateRoomIf(ctx context.Context, code string, version int64, fields Fields) error {
	m.mu.Lock()
	room, ok := m.rooms[code]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if room.Version != version {
		m.mu.Unlock()
		return ErrConflict
	}
	if err := applyRoomFields(room, fields); err != nil {
		m.mu.Unlock()
		return err
	}
	room.Version++
	room.UpdatedAt = time.Now().UTC()
	updated := cloneRoom(room)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionRooms,
		Type:       EventUpdate,
		RoomCode:   code,
		Room:       updated,
	})
	return nil
}

func (m *Memory) UpdateRoomStatus(ctx context.Context, code, to string, from ...string) error {
	if err := validateStatusWrite(to, from); err != nil {
		return err
	}
	m.mu.Lock()
	room, ok := m.rooms[code]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if room.Status == to {
		m.mu.Unlock()
		return nil
	}
	allowed := false
	for _, status := range from {
		if room.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return ErrConflict
	}
	room.Status = to
	room.Version++
	room.UpdatedAt = time.Now().UTC()
	updated := cloneRoom(room)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionRooms,
		Type:       EventUpdate,
		RoomCode:   code,
		Room:       updated,
	})
	return nil
}

func (m *Memory) ListPlayers(ctx context.Context, code string) ([]game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster(code), nil
}

func (m *Memory) roster(code string) []game.Player {
	roster := make([]game.Player, 0)
	for _, player := range m.players {
		if player.RoomCode == code {
			roster = append(roster, *clonePlayer(player))
		}
	}
	sort.Slice(roster, func(i, j int) bool {
		if !roster[i].CreatedAt.Equal(roster[j].CreatedAt) {
			return roster[i].CreatedAt.Before(roster[j].CreatedAt)
		}
		return roster[i].ID < roster[j].ID
	})
	return roster
}

func (m *Memory) CountPlayers(ctx context.Context, code string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, player := range m.players {
		if player.RoomCode == code {
			count++
		}
	}
	return count, nil
}

func (m *Memory) GetPlayer(ctx context.Context, code, sessionID string) (*game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, player := range m.players {
		if player.RoomCode == code && player.SessionID == sessionID {
			return clonePlayer(player), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertPlayer(ctx context.Context, player *game.Player) error {
	m.mu.Lock()
	for _, existing := range m.players {
		if existing.RoomCode != player.RoomCode {
			continue
		}
		if existing.Nickname == player.Nickname {
			m.mu.Unlock()
			return ErrNicknameTaken
		}
		if existing.SessionID == player.SessionID {
			m.mu.Unlock()
			return ErrConflict
		}
	}
	stored := clonePlayer(player)
	stored.ID = m.nextPlayerID
	m.nextPlayerID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.players[stored.ID] = stored
	player.ID = stored.ID
	player.CreatedAt = stored.CreatedAt
	inserted := clonePlayer(stored)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       EventInsert,
		RoomCode:   inserted.RoomCode,
		Player:     inserted,
	})
	return nil
}

func (m *Memory) UpdatePlayer(ctx context.Context, id uint, fields Fields) error {
	m.mu.Lock()
	player, ok := m.players[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if err := applyPlayerFields(player, fields); err != nil {
		m.mu.Unlock()
		return err
	}
	updated := clonePlayer(player)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       EventUpdate,
		RoomCode:   updated.RoomCode,
		Player:     updated,
	})
	return nil
}

func (m *Memory) DeletePlayer(ctx context.Context, id uint) error {
	m.mu.Lock()
	player, ok := m.players[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	removed := clonePlayer(player)
	delete(m.players, id)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       EventDelete,
		RoomCode:   removed.RoomCode,
		Player:     removed,
	})
	return nil
}

func (m *Memory) ClaimHost(ctx context.Context, code string, playerID uint) error {
	m.mu.Lock()
	target, ok := m.players[playerID]
	if !ok || target.RoomCode != code {
		m.mu.Unlock()
		return ErrNotFound
	}
	if target.IsHost {
		m.mu.Unlock()
		return nil
	}
	for _, player := range m.players {
		if player.RoomCode == code && player.IsHost {
			m.mu.Unlock()
			return ErrConflict
		}
	}
	target.IsHost = true
	updated := clonePlayer(target)
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       EventUpdate,
		RoomCode:   code,
		Player:     updated,
	})
	return nil
}

func (m *Memory) InsertMessage(ctx context.Context, message *game.Message) error {
	m.mu.Lock()
	stored := *message
	stored.ID = m.nextMessageID
	m.nextMessageID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.messages[stored.RoomCode] = append(m.messages[stored.RoomCode], stored)
	message.ID = stored.ID
	message.CreatedAt = stored.CreatedAt
	inserted := stored
	m.mu.Unlock()

	m.feed.publish(Change{
		Collection: CollectionMessages,
		Type:       EventInsert,
		RoomCode:   inserted.RoomCode,
		Message:    &inserted,
	})
	return nil
}

func (m *Memory) ListMessages(ctx context.Context, code string) ([]game.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.Message(nil), m.messages[code]...), nil
}

func (m *Memory) Subscribe(collection Collection, roomCode string) (*Subscription, error) {
	switch collection {
	case CollectionRooms, CollectionPlayers, CollectionMessages:
	default:
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
	return m.feed.subscribe(collection, roomCode), nil
}

func applyRoomFields(room *game.Room, fields Fields) error {
	for key, value := range fields {
		switch key {
		case "status":
			status, ok := value.(string)
			if !ok || !game.ValidStatus(status) {
				return fmt.Errorf("invalid status value: %v", value)
			}
			room.Status = status
		case "scenario":
			scenario, ok := value.(*game.Scenario)
			if !ok && value != nil {
				return fmt.Errorf("invalid scenario value: %T", value)
			}
			room.Scenario = cloneScenario(scenario)
		case "votes":
			votes, ok := value.(map[string]int)
			if !ok && value != nil {
				return fmt.Errorf("invalid votes value: %T", value)
			}
			room.Votes = cloneVotes(votes)
		case "host_id":
			hostID, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid host_id value: %T", value)
			}
			room.HostSessionID = hostID
		default:
			return fmt.Errorf("unknown room field: %s", key)
		}
	}
	return nil
}

func applyPlayerFields(player *game.Player, fields Fields) error {
	for key, value := range fields {
		switch key {
		case "is_host":
			isHost, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid is_host value: %T", value)
			}
			player.IsHost = isHost
		case "character_index":
			index, ok := value.(int)
			if !ok {
				return fmt.Errorf("invalid character_index value: %T", value)
			}
			player.CharacterIndex = &index
		default:
			return fmt.Errorf("unknown player field: %s", key)
		}
	}
	return nil
}
