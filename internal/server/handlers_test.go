package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mystery-night/internal/config"
	"mystery-night/internal/game"
	"mystery-night/internal/scenario"
	"mystery-night/internal/store"
)

func stubScenario(playerCount int) *game.Scenario {
	sc := &game.Scenario{
		Name:          "The Gallery Affair",
		Setting:       "A private art gallery after closing",
		Victim:        "The curator",
		Background:    "The opening night ended in a blackout.",
		MurdererIndex: 1,
		Motive:        "Debt",
		Method:        "Poisoned champagne",
		Timeline:      "The lights went out at ten.",
	}
	for i := 0; i < playerCount; i++ {
		sc.Characters = append(sc.Characters, game.Character{
			Name:       fmt.Sprintf("Guest %d", i+1),
			Role:       "Collector",
			Emoji:      "🕵️",
			Secret:     "Knows the safe code.",
			Motive:     "Wanted the painting.",
			PublicInfo: "Arrived late.",
		})
	}
	for i := 0; i < game.ClueCount(playerCount); i++ {
		sc.Clues = append(sc.Clues, game.Clue{
			ID:          i + 1,
			Name:        fmt.Sprintf("Clue %d", i+1),
			Icon:        "🔍",
			Description: "A smudged glass.",
			Relevance:   "Ties a guest to the bar.",
		})
	}
	return sc
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(store.NewMemory(), config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestGenerateScenarioRejectsBadJSON(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/generate-scenario", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerateScenarioRejectsBadSettings(t *testing.T) {
	_, ts := newTestServer(t)
	cases := []scenario.Request{
		{PlayerCount: 2, Genre: "noir", DurationMinutes: 60},
		{PlayerCount: 10, Genre: "noir", DurationMinutes: 60},
		{PlayerCount: 4, Genre: "western", DurationMinutes: 60},
		{PlayerCount: 4, Genre: "noir", DurationMinutes: 0},
	}
	for _, req := range cases {
		resp := postJSON(t, ts.URL+"/api/generate-scenario", req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %+v, got %d", req, resp.StatusCode)
		}
	}
}

func TestGenerateScenarioSuccess(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.gen = scenario.GeneratorFunc(func(ctx context.Context, settings game.Settings) (*game.Scenario, error) {
		return stubScenario(settings.PlayerCount), nil
	})
	resp := postJSON(t, ts.URL+"/api/generate-scenario", scenario.Request{
		PlayerCount: 5, Genre: "noir", DurationMinutes: 60,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body scenario.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Scenario == nil {
		t.Fatalf("expected success payload, got %+v", body)
	}
	if len(body.Scenario.Characters) != 5 {
		t.Fatalf("expected 5 characters, got %d", len(body.Scenario.Characters))
	}
	if len(body.Scenario.Clues) != game.ClueCount(5) {
		t.Fatalf("expected %d clues, got %d", game.ClueCount(5), len(body.Scenario.Clues))
	}
}

func TestGenerateScenarioGeneratorFailure(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.gen = scenario.GeneratorFunc(func(ctx context.Context, settings game.Settings) (*game.Scenario, error) {
		return nil, errors.New("model unavailable")
	})
	resp := postJSON(t, ts.URL+"/api/generate-scenario", scenario.Request{
		PlayerCount: 4, Genre: "noir", DurationMinutes: 60,
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body scenario.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Fatalf("expected failure payload, got %+v", body)
	}
}

func TestGenerateScenarioWithoutAPIKey(t *testing.T) {
	// Default config carries no key, so generation fails closed with the
	// contract's failure shape.
	_, ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/generate-scenario", scenario.Request{
		PlayerCount: 4, Genre: "noir", DurationMinutes: 60,
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body scenario.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Fatalf("expected failure payload, got %+v", body)
	}
}

func TestGenerateScenarioMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/generate-scenario")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
