package client

import (
	"context"
	"fmt"
	"log"

	"mystery-night/internal/game"
	"mystery-night/internal/store"
)

// StartGame runs the host's start flow: flip the room to generating,
// request a scenario, assign characters and flip to playing. Generation
// failure triggers the one permitted backward transition, a compensating
// write back to waiting.
func (c *Client) StartGame(ctx context.Context) error {
	c.mu.Lock()
	room := c.room
	roster := append([]game.Player(nil), c.roster...)
	isHost := c.isHost
	code := c.session.RoomCode
	c.mu.Unlock()

	if room == nil {
		return ErrNotInRoom
	}
	if !isHost {
		return ErrNotHost
	}
	if len(roster) < room.Settings.PlayerCount {
		return ErrRosterIncomplete
	}

	// Optimistic: the loading view appears before the authoritative
	// write is confirmed.
	c.setPhase(PhaseLoading)

	if err := c.store.UpdateRoomStatus(ctx, code, game.StatusGenerating, game.StatusWaiting); err != nil {
		c.setPhase(PhaseWaiting)
		return fmt.Errorf("start game: %w", err)
	}

	generated, err := c.gen.Generate(ctx, room.Settings)
	if err == nil {
		err = game.ValidateScenario(generated, room.Settings.PlayerCount)
	}
	if err != nil {
		c.compensateGeneration(ctx, code)
		c.notice("Scenario generation failed. Back to the waiting room.")
		return fmt.Errorf("scenario generation: %w", err)
	}
	game.NormalizeScenario(generated)
	generated.Genre = room.Settings.Genre

	// Per-player assignment writes are sequential and not atomic with the
	// status flip; readers tolerate a missing index and re-read.
	indices := game.AssignCharacterIndices(len(roster))
	for i, player := range roster {
		if err := c.store.UpdatePlayer(ctx, player.ID, store.Fields{"character_index": indices[i]}); err != nil {
			return fmt.Errorf("assign character to player %d: %w", player.ID, err)
		}
	}

	if err := c.store.UpdateRoom(ctx, code, store.Fields{
		"scenario": generated,
		"status":   game.StatusPlaying,
	}); err != nil {
		return fmt.Errorf("publish scenario: %w", err)
	}
	log.Printf("game started room_code=%s players=%d", code, len(roster))
	return nil
}

func (c *Client) compensateGeneration(ctx context.Context, code string) {
	if err := c.store.UpdateRoomStatus(ctx, code, game.StatusWaiting, game.StatusGenerating); err != nil {
		log.Printf("compensating status write failed room_code=%s error=%v", code, err)
	}
	c.setPhase(PhaseWaiting)
}
