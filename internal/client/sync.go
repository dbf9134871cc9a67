package client

import (
	"context"
	"log"
	"time"

	"mystery-night/internal/game"
	"mystery-night/internal/store"
)

const syncOpTimeout = 10 * time.Second

// resubscribe opens change feeds for the three collections scoped to the
// room code. Any previous subscriptions are released first so a room
// change never leaks a standing feed.
func (c *Client) resubscribe(roomCode string) {
	c.unsubscribe()

	roomSub, err := c.store.Subscribe(store.CollectionRooms, roomCode)
	if err != nil {
		log.Printf("room subscription failed room_code=%s error=%v", roomCode, err)
		return
	}
	playerSub, err := c.store.Subscribe(store.CollectionPlayers, roomCode)
	if err != nil {
		roomSub.Close()
		log.Printf("player subscription failed room_code=%s error=%v", roomCode, err)
		return
	}
	messageSub, err := c.store.Subscribe(store.CollectionMessages, roomCode)
	if err != nil {
		roomSub.Close()
		playerSub.Close()
		log.Printf("message subscription failed room_code=%s error=%v", roomCode, err)
		return
	}

	c.subsMu.Lock()
	c.subs = []*store.Subscription{roomSub, playerSub, messageSub}
	c.subsMu.Unlock()

	c.syncWG.Add(1)
	go c.syncLoop(roomSub, playerSub, messageSub)
}

// unsubscribe releases all standing subscriptions. Safe to call at any
// time, including twice.
func (c *Client) unsubscribe() {
	c.subsMu.Lock()
	subs := c.subs
	c.subs = nil
	c.subsMu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	c.syncWG.Wait()
}

func (c *Client) syncLoop(roomSub, playerSub, messageSub *store.Subscription) {
	defer c.syncWG.Done()
	rooms := roomSub.Changes()
	players := playerSub.Changes()
	messages := messageSub.Changes()
	for rooms != nil || players != nil || messages != nil {
		select {
		case change, ok := <-rooms:
			if !ok {
				rooms = nil
				continue
			}
			c.onRoomChange(change)
		case change, ok := <-players:
			if !ok {
				players = nil
				continue
			}
			c.onPlayerChange(change)
		case change, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			c.onMessageChange(change)
		}
	}
}

// onRoomChange replaces the local room record wholesale and feeds the new
// status into the phase handling. Partial merges are never attempted; the
// notification carries the full row.
func (c *Client) onRoomChange(change store.Change) {
	if change.Room == nil {
		return
	}
	room := change.Room

	c.mu.Lock()
	previous := ""
	if c.room != nil {
		previous = c.room.Status
	}
	c.room = room
	if room.Status == game.StatusVoting && previous != game.StatusVoting {
		// Entering the vote resets local submission state.
		c.voteCast = false
	}
	c.mu.Unlock()

	c.emitRoom(room)

	switch room.Status {
	case game.StatusWaiting:
		// Normal in the lobby; after generating it is the compensating
		// fallback for a failed generation.
		c.setPhase(PhaseWaiting)
	case game.StatusGenerating:
		c.setPhase(PhaseLoading)
	case game.StatusPlaying:
		if previous != game.StatusPlaying {
			c.enterPlaying(context.Background(), room)
		}
	case game.StatusVoting:
		c.setPhase(PhaseVoting)
		ctx, cancel := context.WithTimeout(context.Background(), syncOpTimeout)
		c.finishVotingIfComplete(ctx, room.Code, room.Votes)
		cancel()
	case game.StatusEnded:
		c.handleGameEnd(room)
	}
}

// onPlayerChange deliberately ignores the notification payload:
// notification delivery order is not guaranteed relative to the true row
// state, so the full roster is re-read and replaced wholesale.
func (c *Client) onPlayerChange(store.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), syncOpTimeout)
	defer cancel()

	c.mu.Lock()
	code := c.session.RoomCode
	sessionID := c.session.SessionID
	c.mu.Unlock()
	if code == "" {
		return
	}

	roster, err := c.store.ListPlayers(ctx, code)
	if err != nil {
		log.Printf("roster refresh failed room_code=%s error=%v", code, err)
		return
	}

	c.mu.Lock()
	c.roster = roster
	for _, player := range roster {
		if player.SessionID == sessionID {
			c.isHost = player.IsHost
			if player.CharacterIndex != nil {
				c.myIndex = player.CharacterIndex
			}
			break
		}
	}
	c.mu.Unlock()

	c.emitRoster(roster)
	c.resolveHost(ctx, roster)
}

// onMessageChange appends to the local log. A subscription reconnect may
// redeliver rows, so duplicates are suppressed by message id.
func (c *Client) onMessageChange(change store.Change) {
	if change.Message == nil {
		return
	}
	message := *change.Message

	c.mu.Lock()
	if _, dup := c.seen[message.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[message.ID] = struct{}{}
	c.messages = append(c.messages, message)
	c.mu.Unlock()

	c.emitMessage(message)
}

// enterPlaying resolves the caller's character assignment from a fresh
// player read before the playing phase is entered. The status flip and
// the assignment writes are not atomic, so a transiently missing index is
// retried rather than treated as a failure.
func (c *Client) enterPlaying(ctx context.Context, room *game.Room) {
	if room.Scenario == nil {
		log.Printf("playing status without scenario room_code=%s", room.Code)
		return
	}

	c.mu.Lock()
	if c.phase == PhaseGame {
		c.mu.Unlock()
		return
	}
	code := c.session.RoomCode
	sessionID := c.session.SessionID
	c.mu.Unlock()

	for attempt := 0; attempt < c.cfg.CharacterReadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.CharacterReadDelay):
			}
		}
		roster, err := c.store.ListPlayers(ctx, code)
		if err != nil {
			log.Printf("roster read failed room_code=%s error=%v", code, err)
			continue
		}
		var mine *int
		for _, player := range roster {
			if player.SessionID == sessionID {
				mine = player.CharacterIndex
				break
			}
		}
		if mine == nil {
			// Assignment write not visible yet.
			continue
		}
		c.mu.Lock()
		c.roster = roster
		c.myIndex = mine
		c.mu.Unlock()
		c.emitRoster(roster)
		c.setPhase(PhaseGame)
		return
	}
	log.Printf("character index not available after retries room_code=%s", code)
}

// handleGameEnd derives the result from the authoritative room record.
// Every client computes it independently and identically.
func (c *Client) handleGameEnd(room *game.Room) {
	if room.Scenario == nil {
		log.Printf("ended status without scenario room_code=%s", room.Code)
		return
	}
	result := game.ComputeResult(room.Scenario, room.Votes)

	c.mu.Lock()
	c.result = &result
	c.mu.Unlock()

	c.emitResult(result)
	c.setPhase(PhaseResult)
}
