package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mystery-night/internal/db"
	"mystery-night/internal/game"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Postgres stores the three collections in Postgres through GORM. Change
// notifications are published on an in-process feed after each committed
// write; multi-node deployments put the websocket bridge in front of it.
type Postgres struct {
	db   *gorm.DB
	feed *feed
}

func NewPostgres(conn *gorm.DB) *Postgres {
	return &Postgres{
		db:   conn,
		feed: newFeed(),
	}
}

func (p *Postgres) GetRoom(ctx context.Context, code string) (*game.Room, error) {
	var record db.Room
	if err := p.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return roomFromRecord(&record)
}

func (p *Postgres) InsertRoom(ctx context.Context, room *game.Room) error {
	record, err := roomToRecord(room)
	if err != nil {
		return err
	}
	if err := p.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	room.CreatedAt = record.CreatedAt
	room.UpdatedAt = record.UpdatedAt
	return nil
}

func (p *Postgres) UpdateRoom(ctx context.Context, code string, fields Fields) error {
	updates, err := roomFieldColumns(fields)
	if err != nil {
		return err
	}
	updates["version"] = gorm.Expr("version + 1")
	result := p.db.WithContext(ctx).Model(&db.Room{}).Where("code = ?", code).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return p.publishRoom(ctx, code)
}

func (p *Postgres) UpdateRoomIf(ctx context.Context, code string, version int64, fields Fields) error {
	updates, err := roomFieldColumns(fields)
	if err != nil {
		return err
	}
	updates["version"] = gorm.Expr("version + 1")
	result := p.db.WithContext(ctx).Model(&db.Room{}).
		Where("code = ? AND version = ?", code, version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := p.GetRoom(ctx, code); err != nil {
			return err
		}
		return ErrConflict
	}
	return p.publishRoom(ctx, code)
}

func (p *Postgres) UpdateRoomStatus(ctx context.Context, code, to string, from ...string) error {
	if err := validateStatusWrite(to, from); err != nil {
		return err
	}
	result := p.db.WithContext(ctx).Model(&db.Room{}).
		Where("code = ? AND status IN ?", code, from).
		Updates(map[string]any{
			"status":  to,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		current, err := p.GetRoom(ctx, code)
		if err != nil {
			return err
		}
		if current.Status == to {
			return nil
		}
		return ErrConflict
	}
	return p.publishRoom(ctx, code)
}

func (p *Postgres) publishRoom(ctx context.Context, code string) error {
	room, err := p.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	p.feed.publish(Change{
		Collection: CollectionRooms,
		Type:       EventUpdate,
		RoomCode:   code,
		Room:       room,
	})
	return nil
}

func (p *Postgres) ListPlayers(ctx context.Context, code string) ([]game.Player, error) {
	var records []db.Player
	if err := p.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	roster := make([]game.Player, 0, len(records))
	for i := range records {
		roster = append(roster, *playerFromRecord(&records[i]))
	}
	return roster, nil
}

func (p *Postgres) CountPlayers(ctx context.Context, code string) (int, error) {
	var count int64
	if err := p.db.WithContext(ctx).Model(&db.Player{}).
		Where("room_code = ?", code).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (p *Postgres) GetPlayer(ctx context.Context, code, sessionID string) (*game.Player, error) {
	var record db.Player
	if err := p.db.WithContext(ctx).
		Where("room_code = ? AND session_id = ?", code, sessionID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return playerFromRecord(&record), nil
}

func (p *Postgres) InsertPlayer(ctx context.Context, player *game.Player) error {
	record := playerToRecord(player)
	if err := p.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrNicknameTaken
		}
		return err
	}
	player.ID = record.ID
	player.CreatedAt = record.CreatedAt
	p.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       EventInsert,
		RoomCode:   player.RoomCode,
		Player:     clonePlayer(player),
	})
	return nil
}

func (p *Postgres) UpdatePlayer(ctx context.Context, id uint, fields Fields) error {
	updates, err := playerFieldColumns(fields)
	if err != nil {
		return err
	}
	result := p.db.WithContext(ctx).Model(&db.Player{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return p.publishPlayer(ctx, id, EventUpdate)
}

func (p *Postgres) DeletePlayer(ctx context.Context, id uint) error {
	var record db.Player
	if err := p.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := p.db.WithContext(ctx).Delete(&db.Player{}, id).Error; err != nil {
		return err
	}
	p.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       EventDelete,
		RoomCode:   record.RoomCode,
		Player:     playerFromRecord(&record),
	})
	return nil
}

func (p *Postgres) ClaimHost(ctx context.Context, code string, playerID uint) error {
	result := p.db.WithContext(ctx).Exec(
		`UPDATE players SET is_host = true
		 WHERE id = ? AND room_code = ?
		 AND NOT EXISTS (SELECT 1 FROM players other WHERE other.room_code = ? AND other.is_host)`,
		playerID, code, code,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var record db.Player
		if err := p.db.WithContext(ctx).
			Where("id = ? AND room_code = ?", playerID, code).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if record.IsHost {
			return nil
		}
		return ErrConflict
	}
	return p.publishPlayer(ctx, playerID, EventUpdate)
}

func (p *Postgres) publishPlayer(ctx context.Context, id uint, eventType EventType) error {
	var record db.Player
	if err := p.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return err
	}
	p.feed.publish(Change{
		Collection: CollectionPlayers,
		Type:       eventType,
		RoomCode:   record.RoomCode,
		Player:     playerFromRecord(&record),
	})
	return nil
}

func (p *Postgres) InsertMessage(ctx context.Context, message *game.Message) error {
	record := db.Message{
		RoomCode:       message.RoomCode,
		SessionID:      message.SessionID,
		Nickname:       message.Nickname,
		CharacterName:  message.CharacterName,
		CharacterEmoji: message.CharacterEmoji,
		Content:        message.Content,
		AsCharacter:    message.AsCharacter,
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}
	message.ID = record.ID
	message.CreatedAt = record.CreatedAt
	published := *message
	p.feed.publish(Change{
		Collection: CollectionMessages,
		Type:       EventInsert,
		RoomCode:   message.RoomCode,
		Message:    &published,
	})
	return nil
}

func (p *Postgres) ListMessages(ctx context.Context, code string) ([]game.Message, error) {
	var records []db.Message
	if err := p.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	log := make([]game.Message, 0, len(records))
	for _, record := range records {
		log = append(log, game.Message{
			ID:             record.ID,
			RoomCode:       record.RoomCode,
			SessionID:      record.SessionID,
			Nickname:       record.Nickname,
			CharacterName:  record.CharacterName,
			CharacterEmoji: record.CharacterEmoji,
			Content:        record.Content,
			AsCharacter:    record.AsCharacter,
			CreatedAt:      record.CreatedAt,
		})
	}
	return log, nil
}

func (p *Postgres) Subscribe(collection Collection, roomCode string) (*Subscription, error) {
	switch collection {
	case CollectionRooms, CollectionPlayers, CollectionMessages:
	default:
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
	return p.feed.subscribe(collection, roomCode), nil
}

func roomToRecord(room *game.Room) (*db.Room, error) {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return nil, err
	}
	record := &db.Room{
		Code:     room.Code,
		Status:   room.Status,
		HostID:   room.HostSessionID,
		Settings: datatypes.JSON(settings),
	}
	if room.Scenario != nil {
		scenario, err := json.Marshal(room.Scenario)
		if err != nil {
			return nil, err
		}
		record.Scenario = datatypes.JSON(scenario)
	}
	if room.Votes != nil {
		votes, err := json.Marshal(room.Votes)
		if err != nil {
			return nil, err
		}
		record.Votes = datatypes.JSON(votes)
	}
	return record, nil
}

func roomFromRecord(record *db.Room) (*game.Room, error) {
	room := &game.Room{
		Code:          record.Code,
		Status:        record.Status,
		HostSessionID: record.HostID,
		Version:       record.Version,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if len(record.Settings) > 0 {
		if err := json.Unmarshal(record.Settings, &room.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for room %s: %w", record.Code, err)
		}
	}
	if len(record.Scenario) > 0 {
		room.Scenario = &game.Scenario{}
		if err := json.Unmarshal(record.Scenario, room.Scenario); err != nil {
			return nil, fmt.Errorf("decode scenario for room %s: %w", record.Code, err)
		}
	}
	if len(record.Votes) > 0 {
		if err := json.Unmarshal(record.Votes, &room.Votes); err != nil {
			return nil, fmt.Errorf("decode votes for room %s: %w", record.Code, err)
		}
	}
	return room, nil
}

func playerToRecord(player *game.Player) *db.Player {
	record := &db.Player{
		RoomCode:  player.RoomCode,
		SessionID: player.SessionID,
		Nickname:  player.Nickname,
		IsHost:    player.IsHost,
	}
	if player.CharacterIndex != nil {
		index := *player.CharacterIndex
		record.CharacterIndex = &index
	}
	return record
}

func playerFromRecord(record *db.Player) *game.Player {
	player := &game.Player{
		ID:        record.ID,
		RoomCode:  record.RoomCode,
		SessionID: record.SessionID,
		Nickname:  record.Nickname,
		IsHost:    record.IsHost,
		CreatedAt: record.CreatedAt,
	}
	if record.CharacterIndex != nil {
		index := *record.CharacterIndex
		player.CharacterIndex = &index
	}
	return player
}

func roomFieldColumns(fields Fields) (map[string]any, error) {
	updates := make(map[string]any, len(fields))
	for key, value := range fields {
		switch key {
		case "status":
			status, ok := value.(string)
			if !ok || !game.ValidStatus(status) {
				return nil, fmt.Errorf("invalid status value: %v", value)
			}
			updates["status"] = status
		case "scenario":
			scenario, ok := value.(*game.Scenario)
			if !ok && value != nil {
				return nil, fmt.Errorf("invalid scenario value: %T", value)
			}
			if scenario == nil {
				updates["scenario"] = nil
				continue
			}
			data, err := json.Marshal(scenario)
			if err != nil {
				return nil, err
			}
			updates["scenario"] = datatypes.JSON(data)
		case "votes":
			votes, ok := value.(map[string]int)
			if !ok && value != nil {
				return nil, fmt.Errorf("invalid votes value: %T", value)
			}
			data, err := json.Marshal(votes)
			if err != nil {
				return nil, err
			}
			updates["votes"] = datatypes.JSON(data)
		case "host_id":
			hostID, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("invalid host_id value: %T", value)
			}
			updates["host_id"] = hostID
		default:
			return nil, fmt.Errorf("unknown room field: %s", key)
		}
	}
	return updates, nil
}

func playerFieldColumns(fields Fields) (map[string]any, error) {
	updates := make(map[string]any, len(fields))
	for key, value := range fields {
		switch key {
		case "is_host":
			isHost, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("invalid is_host value: %T", value)
			}
			updates["is_host"] = isHost
		case "character_index":
			index, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("invalid character_index value: %T", value)
			}
			updates["character_index"] = index
		default:
			return nil, fmt.Errorf("unknown player field: %s", key)
		}
	}
	return updates, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
