package client

import (
	"context"
	"errors"
	"log"

	"mystery-night/internal/game"
	"mystery-night/internal/store"
)

// resolveHost restores the one-host invariant after the host disappears.
// Every client evaluates the same rule on every roster change: the
// deterministic candidate is the earliest-created player (row id breaks
// ties), and only the candidate's own client acts. The claim itself is a
// conditional write, so even clients that disagree on "earliest" because
// of a stale read cannot seat two hosts.
func (c *Client) resolveHost(ctx context.Context, roster []game.Player) {
	if len(roster) == 0 {
		return
	}
	for _, player := range roster {
		if player.IsHost {
			return
		}
	}
	candidate := roster[0]

	c.mu.Lock()
	mine := candidate.SessionID == c.session.SessionID
	code := c.session.RoomCode
	c.mu.Unlock()
	if !mine {
		return
	}

	err := c.store.ClaimHost(ctx, code, candidate.ID)
	switch {
	case err == nil:
		log.Printf("host migration: claimed host room_code=%s player_id=%d", code, candidate.ID)
		c.mu.Lock()
		c.isHost = true
		c.mu.Unlock()
	case errors.Is(err, store.ErrConflict):
		// Another client won the claim. The roster notification for its
		// write brings us up to date.
	default:
		log.Printf("host claim failed room_code=%s error=%v", code, err)
	}
}
