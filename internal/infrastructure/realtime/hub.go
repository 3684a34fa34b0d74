package realtime

import (
	"encoding/json"
	"sync"
)

// ChangeEvent tells a connected client that a record changed server-side and
// its projection of that kind should be refetched. This is an invalidation
// feed, not a message channel: the payload carries no record state.
type ChangeEvent struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Hub tracks one active feed connection per party and fans change events out
// to the parties of a mutated record.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection // sessionID -> connection
	userSessions map[string]string      // userID -> sessionID
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]string),
	}
}

// Attach registers a connection for its party. A previous session for the
// same party is closed after the swap so each party holds one socket.
func (h *Hub) Attach(conn *Connection) {
	var previous *Connection

	h.mu.Lock()
	if existingID, ok := h.userSessions[conn.UserID]; ok {
		if existing := h.sessions[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}
	h.sessions[conn.ID] = conn
	h.userSessions[conn.UserID] = conn.ID
	h.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Publish delivers the event to every listed party with an open feed.
// Parties without a connection are skipped; they reconcile on next fetch.
func (h *Hub) Publish(event ChangeEvent, userIDs ...string) int {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, userID := range userIDs {
		sessionID, ok := h.userSessions[userID]
		if !ok {
			continue
		}
		conn := h.sessions[sessionID]
		if conn == nil {
			continue
		}
		if conn.Send(payload) == nil {
			delivered++
		}
	}
	return delivered
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.userSessions = make(map[string]string)
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)
	if current, ok := h.userSessions[conn.UserID]; ok && current == sessionID {
		delete(h.userSessions, conn.UserID)
	}
}
