package server

import (
	"encoding/json"
	"strings"
	"testing"

	"mystery-night/internal/game"
)

func rawScenarioJSON(t *testing.T, players int) string {
	t.Helper()
	s := game.Scenario{MurdererIndex: 1}
	for i := 0; i < players; i++ {
		s.Characters = append(s.Characters, game.Character{Name: "C"})
	}
	for i := 0; i < game.ClueCount(players); i++ {
		s.Clues = append(s.Clues, game.Clue{ID: 99, Name: "clue", Found: true})
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestDecodeScenarioStripsFences(t *testing.T) {
	settings := game.Settings{PlayerCount: 4, Genre: game.GenreNoir, DurationMinutes: 60}
	raw := "```json\n" + rawScenarioJSON(t, 4) + "\n```"

	decoded, err := decodeScenario(raw, settings)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Genre != game.GenreNoir {
		t.Fatalf("expected genre stamped, got %q", decoded.Genre)
	}
	for i, clue := range decoded.Clues {
		if clue.ID != i+1 {
			t.Fatalf("expected renumbered ids, got %d at %d", clue.ID, i)
		}
		if clue.Found || clue.FoundBy != nil {
			t.Fatalf("expected discovery state reset")
		}
	}
}

func TestDecodeScenarioRejectsGarbage(t *testing.T) {
	settings := game.Settings{PlayerCount: 4, Genre: game.GenreNoir, DurationMinutes: 60}
	if _, err := decodeScenario("sorry, I cannot do that", settings); err == nil {
		t.Fatalf("expected error for non-JSON reply")
	}
}

func TestDecodeScenarioRejectsWrongShape(t *testing.T) {
	settings := game.Settings{PlayerCount: 5, Genre: game.GenreNoir, DurationMinutes: 60}
	// Four characters for a five player request.
	if _, err := decodeScenario(rawScenarioJSON(t, 4), settings); err == nil {
		t.Fatalf("expected shape validation to fail")
	}
}

func TestScenarioUserPromptCarriesCounts(t *testing.T) {
	prompt := scenarioUserPrompt(game.Settings{PlayerCount: 5, Genre: game.GenreSciFi, DurationMinutes: 90})
	for _, want := range []string{
		"players: 5",
		"play time: 90 minutes",
		"exactly 5 characters",
		"between 0 and 4",
		"contain 8 clues",
		"space station",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestScenarioUserPromptUnknownGenreFallsBack(t *testing.T) {
	prompt := scenarioUserPrompt(game.Settings{PlayerCount: 4, Genre: "western", DurationMinutes: 60})
	if !strings.Contains(prompt, genreDescriptions[game.GenreRandom]) {
		t.Fatalf("expected random genre description fallback")
	}
}
