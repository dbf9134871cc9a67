package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mystery-night/internal/game"
)

// Request is the payload sent to the generation service.
type Request struct {
	PlayerCount     int    `json:"playerCount"`
	Genre           string `json:"genre"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Response is the generation service's reply. On failure Success is false
// and Error carries a human-readable reason.
type Response struct {
	Success  bool           `json:"success"`
	Scenario *game.Scenario `json:"scenario,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Generator produces a scenario for the given settings.
type Generator interface {
	Generate(ctx context.Context, settings game.Settings) (*game.Scenario, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, settings game.Settings) (*game.Scenario, error)

func (f GeneratorFunc) Generate(ctx context.Context, settings game.Settings) (*game.Scenario, error) {
	return f(ctx, settings)
}

// HTTPGenerator calls a remote generation endpoint.
type HTTPGenerator struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPGenerator builds a generator for the given endpoint URL.
// Generation is slow, so the default timeout is generous.
func NewHTTPGenerator(url string) *HTTPGenerator {
	return &HTTPGenerator{URL: url, Timeout: 90 * time.Second}
}

func (g *HTTPGenerator) Generate(ctx context.Context, settings game.Settings) (*game.Scenario, error) {
	payload, err := json.Marshal(Request{
		PlayerCount:     settings.PlayerCount,
		Genre:           settings.Genre,
		DurationMinutes: settings.DurationMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request")
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, g.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach generation service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation request failed (%d)", resp.StatusCode)
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse generation response")
	}
	if !parsed.Success {
		if parsed.Error != "" {
			return nil, fmt.Errorf("generation failed: %s", parsed.Error)
		}
		return nil, errors.New("generation failed")
	}
	if parsed.Scenario == nil {
		return nil, errors.New("generation returned no scenario")
	}
	if err := game.ValidateScenario(parsed.Scenario, settings.PlayerCount); err != nil {
		return nil, err
	}
	return parsed.Scenario, nil
}
