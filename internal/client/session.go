package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Session is the durable local identity: which room this participant
// belongs to and the opaque id its player row carries.
type Session struct {
	RoomCode  string `json:"roomCode"`
	Nickname  string `json:"nickname"`
	SessionID string `json:"sessionId"`
}

// SessionStore keeps the identity across restarts. With a path it writes
// a JSON file; without one it falls back to memory, which tests use.
type SessionStore struct {
	path   string
	mu     sync.Mutex
	cached *Session
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

func (s *SessionStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		if s.cached == nil {
			return nil, nil
		}
		session := *s.cached
		return &session, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		// A corrupt session file is treated as no session.
		return nil, nil
	}
	if session.RoomCode == "" || session.SessionID == "" {
		return nil, nil
	}
	return &session, nil
}

func (s *SessionStore) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		s.cached = &session
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
