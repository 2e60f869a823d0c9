package domain

import (
	"sync"
	"time"
)

// Session is the per-connection state: the identity resolved at handshake
// time and the set of conversation rooms the connection has joined. A single
// identity may hold many sessions at once (one per open connection).
type Session struct {
	ConnectionID string
	Identity     Identity
	rooms        map[string]struct{}
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

// NewSession creates a session for an authenticated connection.
func NewSession(connectionID string, identity Identity) *Session {
	now := time.Now()
	return &Session{
		ConnectionID: connectionID,
		Identity:     identity,
		rooms:        make(map[string]struct{}),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// JoinRoom records that the connection subscribed to a conversation room.
func (s *Session) JoinRoom(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[conversationID] = struct{}{}
	s.LastActiveAt = time.Now()
}

// LeaveRoom removes the subscription record.
func (s *Session) LeaveRoom(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, conversationID)
	s.LastActiveAt = time.Now()
}

// InRoom reports whether the connection is subscribed to the conversation.
func (s *Session) InRoom(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[conversationID]
	return ok
}

// Rooms returns a snapshot of the joined conversation ids.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}

// UpdateActivity refreshes the last-active timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
