package server

import (
	"net/http"
	"sync"

	"mystery-night/internal/config"
	"mystery-night/internal/scenario"
	"mystery-night/internal/store"
)

// Server exposes the scenario generation endpoint and a websocket bridge
// onto the store's change feed. Game state itself lives in the store;
// the server holds no authority over it.
type Server struct {
	store   store.Store
	cfg     config.Config
	gen     scenario.Generator
	ws      *wsHub
	pumpsMu sync.Mutex
	pumps   map[string][]*store.Subscription
}

func New(st store.Store, cfg config.Config) *Server {
	s := &Server{
		store: st,
		cfg:   cfg,
		ws:    newWSHub(),
		pumps: make(map[string][]*store.Subscription),
	}
	s.gen = scenario.GeneratorFunc(s.generateScenarioFromOpenAI)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-scenario", s.handleGenerateScenario)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws/rooms/", s.handleRoomWebsocket)
	return mux
}
