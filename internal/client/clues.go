package client

import (
	"context"
	"errors"
	"fmt"

	"mystery-night/internal/game"
	"mystery-night/internal/store"
)

// InvestigateResult is the outcome of one investigation attempt.
type InvestigateResult struct {
	AlreadyFound bool
	Clue         game.Clue
}

// Investigate marks one clue as discovered by this player. The clue list
// is always read fresh from the store immediately before mutating, never
// from the local replica; investigating a clue somebody else already
// found is an idempotent no-op reported as AlreadyFound.
func (c *Client) Investigate(ctx context.Context, clueID int) (InvestigateResult, error) {
	return c.investigate(ctx, func(clues []game.Clue) (int, error) {
		for i := range clues {
			if clues[i].ID == clueID {
				return i, nil
			}
		}
		return -1, fmt.Errorf("clue %d does not exist", clueID)
	})
}

// InvestigateNext discovers the first not-yet-found clue.
func (c *Client) InvestigateNext(ctx context.Context) (InvestigateResult, error) {
	return c.investigate(ctx, func(clues []game.Clue) (int, error) {
		for i := range clues {
			if !clues[i].Found {
				return i, nil
			}
		}
		return -1, ErrAllCluesFound
	})
}

// writeRetries bounds the re-read loops for conflicting room writes.
const writeRetries = 5

func (c *Client) investigate(ctx context.Context, pick func([]game.Clue) (int, error)) (InvestigateResult, error) {
	c.mu.Lock()
	code := c.session.RoomCode
	nickname := c.session.Nickname
	c.mu.Unlock()
	if code == "" {
		return InvestigateResult{}, ErrNotInRoom
	}

	for attempt := 0; attempt < writeRetries; attempt++ {
		room, err := c.store.GetRoom(ctx, code)
		if err != nil {
			return InvestigateResult{}, err
		}
		if room.Scenario == nil {
			return InvestigateResult{}, errors.New("scenario not available")
		}

		index, err := pick(room.Scenario.Clues)
		if err != nil {
			return InvestigateResult{}, err
		}
		clue := &room.Scenario.Clues[index]
		if clue.Found {
			return InvestigateResult{AlreadyFound: true, Clue: *clue}, nil
		}

		clue.Found = true
		clue.FoundBy = &nickname
		// The entire clue list is written back; there is no per-clue
		// column. The version condition catches a concurrent discovery,
		// which the re-read then reports as AlreadyFound.
		err = c.store.UpdateRoomIf(ctx, code, room.Version, store.Fields{"scenario": room.Scenario})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return InvestigateResult{}, err
		}
		return InvestigateResult{Clue: *clue}, nil
	}
	return InvestigateResult{}, fmt.Errorf("investigation kept conflicting after %d attempts", writeRetries)
}
