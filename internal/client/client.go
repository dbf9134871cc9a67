package client

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"mystery-night/internal/game"
	"mystery-night/internal/scenario"
	"mystery-night/internal/store"

	"github.com/google/uuid"
)

// Local view phases. Derived from the room's authoritative status plus the
// supporting data a phase needs (scenario, own character); never inferred
// from message content.
const (
	PhaseLobby   = "lobby"
	PhaseWaiting = "waiting"
	PhaseLoading = "loading"
	PhaseGame    = "game"
	PhaseVoting  = "voting"
	PhaseResult  = "result"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameStarted      = errors.New("game already started")
	ErrNicknameTaken    = errors.New("nickname already taken")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotInRoom        = errors.New("not in a room")
	ErrRosterIncomplete = errors.New("waiting for more players")
	ErrAllCluesFound    = errors.New("all clues have been found")
)

// Handlers are the embedding program's view of the replica. Rendering is
// out of scope here; callbacks fire after local state settles.
type Handlers struct {
	OnPhase   func(phase string)
	OnRoom    func(room *game.Room)
	OnRoster  func(players []game.Player)
	OnMessage func(message game.Message)
	OnNotice  func(text string)
	OnResult  func(result game.Result)
}

type Config struct {
	// Retries for sourcing the own character index after observing the
	// playing status. The status flip and the per-player assignment
	// writes are not atomic, so the index can be transiently missing.
	CharacterReadRetries int
	CharacterReadDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		CharacterReadRetries: 10,
		CharacterReadDelay:   250 * time.Millisecond,
	}
}

// Client is one participant's coordination core. All shared state lives in
// the injected Store; the client keeps a local replica that converges to
// it through change notifications and authoritative re-reads.
type Client struct {
	store    store.Store
	gen      scenario.Generator
	sessions *SessionStore
	cfg      Config
	handlers Handlers

	mu       sync.Mutex
	session  Session
	phase    string
	room     *game.Room
	roster   []game.Player
	isHost   bool
	myIndex  *int
	voteCast bool
	messages []game.Message
	seen     map[uint]struct{}
	result   *game.Result

	subsMu sync.Mutex
	subs   []*store.Subscription
	syncWG sync.WaitGroup
}

func New(st store.Store, gen scenario.Generator, sessions *SessionStore, cfg Config, handlers Handlers) *Client {
	if sessions == nil {
		sessions = NewSessionStore("")
	}
	if cfg.CharacterReadRetries <= 0 {
		cfg.CharacterReadRetries = DefaultConfig().CharacterReadRetries
	}
	if cfg.CharacterReadDelay <= 0 {
		cfg.CharacterReadDelay = DefaultConfig().CharacterReadDelay
	}
	return &Client{
		store:    st,
		gen:      gen,
		sessions: sessions,
		cfg:      cfg,
		handlers: handlers,
		phase:    PhaseLobby,
		seen:     make(map[uint]struct{}),
	}
}

// CreateRoom creates a fresh room and joins it as host.
func (c *Client) CreateRoom(ctx context.Context, nickname string, settings game.Settings) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return errors.New("nickname is required")
	}
	if err := game.ValidateSettings(settings); err != nil {
		return err
	}

	session := Session{
		RoomCode:  game.NewRoomCode(),
		Nickname:  nickname,
		SessionID: uuid.NewString(),
	}
	room := &game.Room{
		Code:          session.RoomCode,
		Status:        game.StatusWaiting,
		HostSessionID: session.SessionID,
		Settings:      settings,
	}
	if err := c.store.InsertRoom(ctx, room); err != nil {
		return err
	}
	player := &game.Player{
		RoomCode:  session.RoomCode,
		SessionID: session.SessionID,
		Nickname:  nickname,
		IsHost:    true,
	}
	if err := c.store.InsertPlayer(ctx, player); err != nil {
		return err
	}
	if err := c.sessions.Save(session); err != nil {
		log.Printf("failed to save session room_code=%s error=%v", session.RoomCode, err)
	}

	roster, err := c.store.ListPlayers(ctx, session.RoomCode)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session
	c.room = room
	c.roster = roster
	c.isHost = true
	c.phase = PhaseWaiting
	c.mu.Unlock()

	c.resubscribe(session.RoomCode)
	log.Printf("room created room_code=%s session_id=%s", session.RoomCode, session.SessionID)
	c.emitPhase(PhaseWaiting)
	c.emitRoster(roster)
	c.resolveHost(ctx, roster)
	return nil
}

// JoinRoom joins an existing room in the waiting phase.
func (c *Client) JoinRoom(ctx context.Context, nickname, code string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return errors.New("nickname is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	room, err := c.store.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if room.Status != game.StatusWaiting {
		return ErrGameStarted
	}
	count, err := c.store.CountPlayers(ctx, code)
	if err != nil {
		return err
	}
	if count >= room.Settings.PlayerCount {
		return ErrRoomFull
	}

	session := Session{
		RoomCode:  code,
		Nickname:  nickname,
		SessionID: uuid.NewString(),
	}
	player := &game.Player{
		RoomCode:  code,
		SessionID: session.SessionID,
		Nickname:  nickname,
	}
	if err := c.store.InsertPlayer(ctx, player); err != nil {
		if errors.Is(err, store.ErrNicknameTaken) {
			return ErrNicknameTaken
		}
		return err
	}
	if err := c.sessions.Save(session); err != nil {
		log.Printf("failed to save session room_code=%s error=%v", code, err)
	}

	roster, err := c.store.ListPlayers(ctx, code)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session
	c.room = room
	c.roster = roster
	c.isHost = false
	c.phase = PhaseWaiting
	c.mu.Unlock()

	c.resubscribe(code)
	log.Printf("room joined room_code=%s session_id=%s", code, session.SessionID)
	c.emitPhase(PhaseWaiting)
	c.emitRoster(roster)
	// Our own insert happened before the feeds opened, so the roster
	// snapshot we just read is the only trigger for the host check.
	c.resolveHost(ctx, roster)
	return nil
}

// Recover validates a saved identity against the store and, when valid,
// rebuilds the replica and re-enters the room's current phase. Any
// validation failure clears the identity; the caller falls back to the
// lobby. The cleanup is local, not an error worth retrying.
func (c *Client) Recover(ctx context.Context) (bool, error) {
	session, err := c.sessions.Load()
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	room, err := c.store.GetRoom(ctx, session.RoomCode)
	if err != nil {
		log.Printf("session recovery: room unavailable room_code=%s error=%v", session.RoomCode, err)
		c.clearSession()
		return false, nil
	}
	if game.Terminal(room.Status) {
		log.Printf("session recovery: room already ended room_code=%s", session.RoomCode)
		c.clearSession()
		return false, nil
	}
	me, err := c.store.GetPlayer(ctx, session.RoomCode, session.SessionID)
	if err != nil {
		log.Printf("session recovery: player not found room_code=%s", session.RoomCode)
		c.clearSession()
		return false, nil
	}
	roster, err := c.store.ListPlayers(ctx, session.RoomCode)
	if err != nil || len(roster) == 0 {
		log.Printf("session recovery: empty roster room_code=%s", session.RoomCode)
		c.clearSession()
		return false, nil
	}
	history, err := c.store.ListMessages(ctx, session.RoomCode)
	if err != nil {
		history = nil
	}

	c.mu.Lock()
	c.session = *session
	c.room = room
	c.roster = roster
	c.isHost = me.IsHost
	c.myIndex = me.CharacterIndex
	_, c.voteCast = room.Votes[session.SessionID]
	c.messages = history
	c.seen = make(map[uint]struct{}, len(history))
	for _, message := range history {
		c.seen[message.ID] = struct{}{}
	}
	c.mu.Unlock()

	c.resubscribe(session.RoomCode)
	log.Printf("session recovered room_code=%s status=%s", session.RoomCode, room.Status)

	// The host may have left while we were offline. Nothing republishes
	// the roster on its own, so recovery evaluates the host check against
	// the snapshot it just read.
	c.resolveHost(ctx, roster)

	switch room.Status {
	case game.StatusGenerating:
		c.setPhase(PhaseLoading)
	case game.StatusPlaying:
		c.enterPlaying(ctx, room)
	case game.StatusVoting:
		c.setPhase(PhaseVoting)
		c.finishVotingIfComplete(ctx, room.Code, room.Votes)
	default:
		c.setPhase(PhaseWaiting)
	}
	return true, nil
}

// Leave drops the local identity and returns to the lobby. The player row
// stays in the store; other clients keep coordinating without us.
func (c *Client) Leave() {
	c.unsubscribe()
	c.clearSession()
	c.mu.Lock()
	c.session = Session{}
	c.room = nil
	c.roster = nil
	c.isHost = false
	c.myIndex = nil
	c.voteCast = false
	c.messages = nil
	c.seen = make(map[uint]struct{})
	c.result = nil
	c.phase = PhaseLobby
	c.mu.Unlock()
	c.emitPhase(PhaseLobby)
}

// Close tears the client down, releasing its subscriptions.
func (c *Client) Close() {
	c.unsubscribe()
}

func (c *Client) clearSession() {
	if err := c.sessions.Clear(); err != nil {
		log.Printf("failed to clear session error=%v", err)
	}
}

func (c *Client) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Client) Room() *game.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) Roster() []game.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]game.Player(nil), c.roster...)
}

func (c *Client) Messages() []game.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]game.Message(nil), c.messages...)
}

func (c *Client) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) Result() *game.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// MyCharacter returns the caller's assigned character, its index and
// whether the caller is the murderer. ok is false until the assignment
// has been sourced.
func (c *Client) MyCharacter() (character game.Character, index int, murderer bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil || c.room.Scenario == nil || c.myIndex == nil {
		return game.Character{}, 0, false, false
	}
	index = *c.myIndex
	if index < 0 || index >= len(c.room.Scenario.Characters) {
		return game.Character{}, 0, false, false
	}
	return c.room.Scenario.Characters[index], index, index == c.room.Scenario.MurdererIndex, true
}

func (c *Client) setPhase(phase string) {
	c.mu.Lock()
	if c.phase == phase {
		c.mu.Unlock()
		return
	}
	c.phase = phase
	c.mu.Unlock()
	c.emitPhase(phase)
}

func (c *Client) emitPhase(phase string) {
	if c.handlers.OnPhase != nil {
		c.handlers.OnPhase(phase)
	}
}

func (c *Client) emitRoom(room *game.Room) {
	if c.handlers.OnRoom != nil {
		c.handlers.OnRoom(room)
	}
}

func (c *Client) emitRoster(roster []game.Player) {
	if c.handlers.OnRoster != nil {
		c.handlers.OnRoster(append([]game.Player(nil), roster...))
	}
}

func (c *Client) emitMessage(message game.Message) {
	if c.handlers.OnMessage != nil {
		c.handlers.OnMessage(message)
	}
}

func (c *Client) notice(text string) {
	if c.handlers.OnNotice != nil {
		c.handlers.OnNotice(text)
	}
}

func (c *Client) emitResult(result game.Result) {
	if c.handlers.OnResult != nil {
		c.handlers.OnResult(result)
	}
}
