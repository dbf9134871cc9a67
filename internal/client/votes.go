package client

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mystery-night/internal/game"
	"mystery-night/internal/store"
)

// StartVoting advances the room from playing to voting. Conventionally
// the host calls it, but any client's write is accepted; the conditional
// status write keeps repeats harmless.
func (c *Client) StartVoting(ctx context.Context) error {
	c.mu.Lock()
	code := c.session.RoomCode
	c.mu.Unlock()
	if code == "" {
		return ErrNotInRoom
	}
	if err := c.store.UpdateRoomStatus(ctx, code, game.StatusVoting, game.StatusPlaying); err != nil {
		return fmt.Errorf("start voting: %w", err)
	}
	return nil
}

// CastVote records this player's accusation. The vote map is read fresh,
// extended with our entry and written back. After a successful write the
// caster checks for completion itself: whichever client's vote completes
// the set issues the voting→ended transition. There is no leader; the
// transition is idempotent, so simultaneous completions are safe.
func (c *Client) CastVote(ctx context.Context, characterIndex int) error {
	c.mu.Lock()
	code := c.session.RoomCode
	sessionID := c.session.SessionID
	c.mu.Unlock()
	if code == "" {
		return ErrNotInRoom
	}

	var votes map[string]int
	for attempt := 0; ; attempt++ {
		room, err := c.store.GetRoom(ctx, code)
		if err != nil {
			return err
		}
		if room.Status != game.StatusVoting {
			return errors.New("voting is not open")
		}
		if room.Scenario != nil && (characterIndex < 0 || characterIndex >= len(room.Scenario.Characters)) {
			return fmt.Errorf("character index %d out of range", characterIndex)
		}

		votes = room.Votes
		if votes == nil {
			votes = make(map[string]int)
		}
		votes[sessionID] = characterIndex
		// The version condition keeps a concurrent voter's entry from
		// being overwritten by this stale map; conflicts re-read and
		// merge again.
		err = c.store.UpdateRoomIf(ctx, code, room.Version, store.Fields{"votes": votes})
		if errors.Is(err, store.ErrConflict) && attempt < writeRetries {
			continue
		}
		if err != nil {
			return err
		}
		break
	}

	c.mu.Lock()
	c.voteCast = true
	c.mu.Unlock()
	log.Printf("vote cast room_code=%s character_index=%d", code, characterIndex)

	c.finishVotingIfComplete(ctx, code, votes)
	return nil
}

// finishVotingIfComplete issues the voting to ended transition once every
// player's vote is recorded. The caster that lands the final vote runs it
// first, but every client re-evaluates when a vote update arrives, so a
// failed count read on the caster cannot strand a fully voted room.
func (c *Client) finishVotingIfComplete(ctx context.Context, code string, votes map[string]int) {
	if len(votes) == 0 {
		return
	}
	var count int
	var err error
	for attempt := 0; attempt <= writeRetries; attempt++ {
		count, err = c.store.CountPlayers(ctx, code)
		if err == nil {
			break
		}
	}
	if err != nil {
		log.Printf("player count read failed room_code=%s error=%v", code, err)
		return
	}
	if len(votes) < count {
		return
	}
	if err := c.store.UpdateRoomStatus(ctx, code, game.StatusEnded, game.StatusVoting); err != nil {
		log.Printf("end transition failed room_code=%s error=%v", code, err)
	}
}

// VoteCast reports whether this client has submitted a vote in the
// current voting round.
func (c *Client) VoteCast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voteCast
}
