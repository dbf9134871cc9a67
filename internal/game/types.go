package game

import "time"

const (
	StatusWaiting    = "waiting"
	StatusGenerating = "generating"
	StatusPlaying    = "playing"
	StatusVoting     = "voting"
	StatusEnded      = "ended"
)

const (
	GenreMansion  = "mansion"
	GenreNoir     = "noir"
	GenreSciFi    = "scifi"
	GenreOriental = "oriental"
	GenreRandom   = "random"
)

const (
	MinPlayers = 3
	MaxPlayers = 9
)

type Settings struct {
	PlayerCount     int    `json:"playerCount"`
	Genre           string `json:"genre"`
	DurationMinutes int    `json:"durationMinutes"`
}

type Room struct {
	Code          string         `json:"code"`
	Status        string         `json:"status"`
	HostSessionID string         `json:"hostSessionId"`
	Settings      Settings       `json:"settings"`
	Scenario      *Scenario      `json:"scenario,omitempty"`
	Votes         map[string]int `json:"votes,omitempty"`
	// Version counts committed writes to this room. Conditional writers
	// use it as an optimistic concurrency token.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Player struct {
	ID             uint      `json:"id"`
	RoomCode       string    `json:"roomCode"`
	SessionID      string    `json:"sessionId"`
	Nickname       string    `json:"nickname"`
	IsHost         bool      `json:"isHost"`
	CharacterIndex *int      `json:"characterIndex,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Message struct {
	ID             uint      `json:"id"`
	RoomCode       string    `json:"roomCode"`
	SessionID      string    `json:"sessionId"`
	Nickname       string    `json:"nickname"`
	CharacterName  string    `json:"characterName,omitempty"`
	CharacterEmoji string    `json:"characterEmoji,omitempty"`
	Content        string    `json:"content"`
	AsCharacter    bool      `json:"asCharacter"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Character struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Emoji      string `json:"emoji"`
	Secret     string `json:"secret"`
	Motive     string `json:"motive"`
	PublicInfo string `json:"publicInfo"`
}

type Clue struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	Relevance   string  `json:"relevance"`
	Found       bool    `json:"found"`
	FoundBy     *string `json:"foundBy"`
}

type Scenario struct {
	Name          string      `json:"name"`
	Setting       string      `json:"setting"`
	Victim        string      `json:"victim"`
	Background    string      `json:"background"`
	Genre         string      `json:"genre,omitempty"`
	Characters    []Character `json:"characters"`
	Clues         []Clue      `json:"clues"`
	MurdererIndex int         `json:"murdererIndex"`
	Motive        string      `json:"motive"`
	Method        string      `json:"method"`
	Timeline      string      `json:"timeline"`
}
