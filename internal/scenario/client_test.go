package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mystery-night/internal/game"
)

func generationScenario(players int) *game.Scenario {
	s := &game.Scenario{Name: "Trouble Aboard", MurdererIndex: 0}
	for i := 0; i < players; i++ {
		s.Characters = append(s.Characters, game.Character{Name: "C"})
	}
	for i := 0; i < game.ClueCount(players); i++ {
		s.Clues = append(s.Clues, game.Clue{ID: i + 1, Name: "clue"})
	}
	return s
}

func TestHTTPGeneratorSuccess(t *testing.T) {
	var received Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Response{Success: true, Scenario: generationScenario(4)})
	}))
	t.Cleanup(ts.Close)

	gen := NewHTTPGenerator(ts.URL)
	settings := game.Settings{PlayerCount: 4, Genre: game.GenreSciFi, DurationMinutes: 45}
	generated, err := gen.Generate(context.Background(), settings)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if generated.Name != "Trouble Aboard" {
		t.Fatalf("unexpected scenario %+v", generated)
	}
	if received.PlayerCount != 4 || received.Genre != game.GenreSciFi || received.DurationMinutes != 45 {
		t.Fatalf("unexpected request payload %+v", received)
	}
}

func TestHTTPGeneratorServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(Response{Success: false, Error: "Failed to generate scenario"})
	}))
	t.Cleanup(ts.Close)

	gen := NewHTTPGenerator(ts.URL)
	if _, err := gen.Generate(context.Background(), game.Settings{PlayerCount: 4, Genre: game.GenreNoir, DurationMinutes: 60}); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestHTTPGeneratorReportedFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{Success: false, Error: "model unavailable"})
	}))
	t.Cleanup(ts.Close)

	gen := NewHTTPGenerator(ts.URL)
	_, err := gen.Generate(context.Background(), game.Settings{PlayerCount: 4, Genre: game.GenreNoir, DurationMinutes: 60})
	if err == nil || err.Error() != "generation failed: model unavailable" {
		t.Fatalf("expected reported failure, got %v", err)
	}
}

func TestHTTPGeneratorRejectsMalformedShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Three characters for a four player request.
		_ = json.NewEncoder(w).Encode(Response{Success: true, Scenario: generationScenario(3)})
	}))
	t.Cleanup(ts.Close)

	gen := NewHTTPGenerator(ts.URL)
	if _, err := gen.Generate(context.Background(), game.Settings{PlayerCount: 4, Genre: game.GenreNoir, DurationMinutes: 60}); err == nil {
		t.Fatalf("expected shape validation to fail")
	}
}

func TestGeneratorFunc(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, settings game.Settings) (*game.Scenario, error) {
		return nil, fmt.Errorf("players=%d", settings.PlayerCount)
	})
	_, err := gen.Generate(context.Background(), game.Settings{PlayerCount: 5})
	if err == nil || err.Error() != "players=5" {
		t.Fatalf("expected adapter passthrough, got %v", err)
	}
}
