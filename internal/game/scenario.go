package game

import (
	"errors"
	"fmt"
)

// ClueCount returns the number of clues a scenario must carry for the
// given player count: playerCount+4, capped at 8.
func ClueCount(playerCount int) int {
	count := playerCount + 4
	if count > 8 {
		count = 8
	}
	return count
}

// ValidateScenario checks a generated scenario against the shape the game
// requires. A scenario that fails here is a generation error, never a
// partial success.
func ValidateScenario(scenario *Scenario, playerCount int) error {
	if scenario == nil {
		return errors.New("scenario is nil")
	}
	if len(scenario.Characters) != playerCount {
		return fmt.Errorf("expected %d characters, got %d", playerCount, len(scenario.Characters))
	}
	if expected := ClueCount(playerCount); len(scenario.Clues) != expected {
		return fmt.Errorf("expected %d clues, got %d", expected, len(scenario.Clues))
	}
	if scenario.MurdererIndex < 0 || scenario.MurdererIndex >= playerCount {
		return fmt.Errorf("murderer index %d out of range", scenario.MurdererIndex)
	}
	return nil
}

// NormalizeScenario renumbers clue ids sequentially from 1 and resets
// discovery state. Generated payloads are not trusted to carry either.
func NormalizeScenario(scenario *Scenario) {
	if scenario == nil {
		return
	}
	for i := range scenario.Clues {
		scenario.Clues[i].ID = i + 1
		scenario.Clues[i].Found = false
		scenario.Clues[i].FoundBy = nil
	}
}

// ValidateSettings checks lobby settings before a room is created.
func ValidateSettings(settings Settings) error {
	if settings.PlayerCount < MinPlayers || settings.PlayerCount > MaxPlayers {
		return fmt.Errorf("player count must be between %d and %d", MinPlayers, MaxPlayers)
	}
	switch settings.Genre {
	case GenreMansion, GenreNoir, GenreSciFi, GenreOriental, GenreRandom:
	default:
		return fmt.Errorf("unknown genre: %s", settings.Genre)
	}
	if settings.DurationMinutes <= 0 {
		return errors.New("duration must be positive")
	}
	return nil
}
