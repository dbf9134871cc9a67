package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"mystery-night/internal/game"
	"mystery-night/internal/scenario"
)

func (s *Server) handleGenerateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenario.Request
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	settings := game.Settings{
		PlayerCount:     req.PlayerCount,
		Genre:           req.Genre,
		DurationMinutes: req.DurationMinutes,
	}
	if err := game.ValidateSettings(settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	generated, err := s.gen.Generate(r.Context(), settings)
	if err != nil {
		log.Printf("scenario generation failed player_count=%d genre=%s error=%v", req.PlayerCount, req.Genre, err)
		writeJSON(w, http.StatusInternalServerError, scenario.Response{
			Success: false,
			Error:   "Failed to generate scenario",
		})
		return
	}
	log.Printf("scenario generated name=%q player_count=%d genre=%s", generated.Name, req.PlayerCount, req.Genre)
	writeJSON(w, http.StatusOK, scenario.Response{Success: true, Scenario: generated})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
