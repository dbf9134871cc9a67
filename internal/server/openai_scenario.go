package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mystery-night/internal/game"
)

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var genreDescriptions = map[string]string{
	game.GenreMansion:  "a classic whodunit set in a 1920s English manor",
	game.GenreNoir:     "a 1940s Los Angeles noir crime thriller",
	game.GenreSciFi:    "a sci-fi mystery aboard a space station or in a cyberpunk city",
	game.GenreOriental: "a period mystery set in a classical East Asian court",
	game.GenreRandom:   "a mystery with a creative, unusual setting of your choice",
}

const scenarioSystemPrompt = "You are a murder mystery game scenario writer. You respond with valid JSON only, no surrounding text."

func scenarioUserPrompt(settings game.Settings) string {
	description, ok := genreDescriptions[settings.Genre]
	if !ok {
		description = genreDescriptions[game.GenreRandom]
	}
	clueCount := game.ClueCount(settings.PlayerCount)
	return fmt.Sprintf(`Generate a murder mystery scenario as JSON for these conditions:

- players: %d
- genre: %s
- play time: %d minutes

Respond with this exact JSON shape (pure JSON, no other text):

{
  "name": "scenario title",
  "setting": "era and location",
  "victim": "victim name",
  "background": "case background, 3-4 immersive sentences",
  "characters": [
    {
      "name": "character name",
      "role": "role or occupation",
      "emoji": "one fitting emoji",
      "secret": "a secret only this character knows, 2-3 sentences",
      "motive": "why this character could have killed the victim",
      "publicInfo": "what the others know about this character"
    }
  ],
  "clues": [
    {
      "id": 1,
      "name": "clue name",
      "icon": "clue emoji",
      "description": "clue description",
      "relevance": "how this clue ties into the case"
    }
  ],
  "murdererIndex": 0,
  "motive": "the murderer's true motive",
  "method": "how the murder was carried out",
  "timeline": "summary timeline of the case"
}

Rules:
1. The characters array must contain exactly %d characters.
2. murdererIndex must be between 0 and %d.
3. The clues array must contain %d clues.
4. Every character needs a plausible motive tied to the victim.
5. Respond with valid JSON only.`,
		settings.PlayerCount, description, settings.DurationMinutes,
		settings.PlayerCount, settings.PlayerCount-1, clueCount)
}

func (s *Server) generateScenarioFromOpenAI(ctx context.Context, settings game.Settings) (*game.Scenario, error) {
	if strings.TrimSpace(s.cfg.OpenAIAPIKey) == "" {
		return nil, errors.New("OpenAI API key is not configured.")
	}

	reqBody := openAIChatRequest{
		Model: s.cfg.OpenAIModel,
		Messages: []openAIChatMessage{
			{Role: "system", Content: scenarioSystemPrompt},
			{Role: "user", Content: scenarioUserPrompt(settings)},
		},
		Temperature: 0.9,
		MaxTokens:   4000,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request")
	}

	timeout := time.Duration(s.cfg.GenerationTimeoutSeconds) * time.Second
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(s.cfg.OpenAIAPIKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach OpenAI")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("OpenAI error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices.")
	}

	return decodeScenario(parsed.Choices[0].Message.Content, settings)
}

// decodeScenario turns a model reply into a validated scenario. Models
// wrap JSON in markdown fences often enough that stripping them first is
// part of the contract.
func decodeScenario(text string, settings game.Settings) (*game.Scenario, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var generated game.Scenario
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return nil, fmt.Errorf("scenario was not valid JSON: %w", err)
	}
	game.NormalizeScenario(&generated)
	generated.Genre = settings.Genre
	if err := game.ValidateScenario(&generated, settings.PlayerCount); err != nil {
		return nil, err
	}
	return &generated, nil
}
