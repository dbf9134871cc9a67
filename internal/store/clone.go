package store

import "mystery-night/internal/game"

// Reads return copies so a caller mutating its view never aliases shared
// state. Coordination happens through writes only.

func cloneRoom(room *game.Room) *game.Room {
	if room == nil {
		return nil
	}
	clone := *room
	clone.Scenario = cloneScenario(room.Scenario)
	clone.Votes = cloneVotes(room.Votes)
	return &clone
}

func cloneScenario(scenario *game.Scenario) *game.Scenario {
	if scenario == nil {
		return nil
	}
	clone := *scenario
	clone.Characters = append([]game.Character(nil), scenario.Characters...)
	clone.Clues = make([]game.Clue, len(scenario.Clues))
	for i, clue := range scenario.Clues {
		clone.Clues[i] = clue
		if clue.FoundBy != nil {
			foundBy := *clue.FoundBy
			clone.Clues[i].FoundBy = &foundBy
		}
	}
	return &clone
}

func cloneVotes(votes map[string]int) map[string]int {
	if votes == nil {
		return nil
	}
	clone := make(map[string]int, len(votes))
	for sessionID, index := range votes {
		clone[sessionID] = index
	}
	return clone
}

func clonePlayer(player *game.Player) *game.Player {
	if player == nil {
		return nil
	}
	clone := *player
	if player.CharacterIndex != nil {
		index := *player.CharacterIndex
		clone.CharacterIndex = &index
	}
	return &clone
}
