package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"mystery-night/internal/game"
	"mystery-night/internal/store"

	"github.com/gorilla/websocket"
)

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Add registers a connection and reports whether it is the room's first.
func (h *wsHub) Add(code string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[code] = group
	}
	group[conn] = struct{}{}
	return len(group) == 1
}

// Remove drops a connection and reports whether the room is now empty.
func (h *wsHub) Remove(code string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		return false
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, code)
		return true
	}
	return false
}

func (h *wsHub) Broadcast(code string, payload any) {
	h.mu.Lock()
	group := h.groups[code]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// The reader goroutine observes the close and removes the
			// connection, stopping the pump if it was the last one.
			_ = conn.Close()
		}
	}
}

// wsEvent is the wire form of a store change.
type wsEvent struct {
	Collection store.Collection `json:"collection"`
	Type       store.EventType  `json:"type"`
	RoomCode   string           `json:"roomCode"`
	Room       *game.Room       `json:"room,omitempty"`
	Player     *game.Player     `json:"player,omitempty"`
	Message    *game.Message    `json:"message,omitempty"`
}

func (s *Server) handleRoomWebsocket(w http.ResponseWriter, r *http.Request) {
	code, ok := parseRoomWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	room, err := s.store.GetRoom(ctx, code)
	cancel()
	if err != nil {
		http.NotFound(w, r)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_code=%s remote=%s", code, r.RemoteAddr)
	if first := s.ws.Add(code, conn); first {
		if err := s.startPump(code); err != nil {
			log.Printf("ws pump failed room_code=%s error=%v", code, err)
			s.ws.Remove(code, conn)
			return
		}
	}
	// Initial snapshot so late joiners do not wait for the next change.
	data, err := json.Marshal(wsEvent{
		Collection: store.CollectionRooms,
		Type:       store.EventUpdate,
		RoomCode:   code,
		Room:       room,
	})
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	go s.readWS(code, conn)
}

func parseRoomWebsocketPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/ws/rooms/")
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return strings.ToUpper(rest), true
}

func (s *Server) readWS(code string, conn *websocket.Conn) {
	defer func() {
		if empty := s.ws.Remove(code, conn); empty {
			s.stopPump(code)
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_code=%s error=%v", code, err)
			return
		}
	}
}

// startPump subscribes to the room's three change feeds and forwards every
// change to the room's sockets. One pump per room, started with the first
// socket and stopped with the last.
func (s *Server) startPump(code string) error {
	collections := []store.Collection{store.CollectionRooms, store.CollectionPlayers, store.CollectionMessages}
	subs := make([]*store.Subscription, 0, len(collections))
	for _, collection := range collections {
		sub, err := s.store.Subscribe(collection, code)
		if err != nil {
			for _, opened := range subs {
				opened.Close()
			}
			return err
		}
		subs = append(subs, sub)
	}

	s.pumpsMu.Lock()
	s.pumps[code] = subs
	s.pumpsMu.Unlock()

	for _, sub := range subs {
		go func(sub *store.Subscription) {
			for change := range sub.Changes() {
				s.ws.Broadcast(code, wsEvent{
					Collection: change.Collection,
					Type:       change.Type,
					RoomCode:   change.RoomCode,
					Room:       change.Room,
					Player:     change.Player,
					Message:    change.Message,
				})
			}
		}(sub)
	}
	return nil
}

func (s *Server) stopPump(code string) {
	s.pumpsMu.Lock()
	subs := s.pumps[code]
	delete(s.pumps, code)
	s.pumpsMu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}
