package db

import (
	"time"

	"gorm.io/datatypes"
)

// Column names follow the persisted naming convention the sync layer maps
// to its camel-case model: host_id, is_host, character_index, session_id.
// GORM's default naming strategy produces exactly these from the field
// names below.

type Room struct {
	ID        uint           `gorm:"primaryKey"`
	Code      string         `gorm:"size:6;uniqueIndex;not null"`
	Status    string         `gorm:"size:16;not null"`
	HostID    string         `gorm:"size:64;not null"`
	Settings  datatypes.JSON `gorm:"type:jsonb;not null"`
	Scenario  datatypes.JSON `gorm:"type:jsonb"`
	Votes     datatypes.JSON `gorm:"type:jsonb"`
	Version   int64          `gorm:"not null;default:0"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

type Player struct {
	ID             uint      `gorm:"primaryKey"`
	RoomCode       string    `gorm:"size:6;not null;uniqueIndex:idx_players_room_nickname;uniqueIndex:idx_players_room_session"`
	SessionID      string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_session"`
	Nickname       string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_nickname"`
	IsHost         bool      `gorm:"not null;default:false"`
	CharacterIndex *int
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

type Message struct {
	ID             uint      `gorm:"primaryKey"`
	RoomCode       string    `gorm:"size:6;index;not null"`
	SessionID      string    `gorm:"size:64;not null"`
	Nickname       string    `gorm:"size:64;not null"`
	CharacterName  string    `gorm:"size:128"`
	CharacterEmoji string    `gorm:"size:16"`
	Content        string    `gorm:"type:text;not null"`
	AsCharacter    bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"not null"`
}
