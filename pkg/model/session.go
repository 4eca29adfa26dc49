package model

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionClosed is returned when an operation is attempted on a
// disconnected session.
var ErrSessionClosed = errors.New("session is closed")

// SessionState tracks where a connection is in its lifecycle.
// Connected -> Joined -> Disconnected; Disconnected is terminal and
// there is no way back from Joined to Connected.
type SessionState int

const (
	StateConnected SessionState = iota
	StateJoined
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the per-connection protocol state. UserID comes from the
// handshake credential; RoomID and DisplayName are set on join.
type Session struct {
	mu          sync.RWMutex
	userID      string
	displayName string
	roomID      string
	state       SessionState
	connectedAt time.Time
}

func NewSession(userID string) *Session {
	return &Session{
		userID:      userID,
		state:       StateConnected,
		connectedAt: time.Now(),
	}
}

// Join moves the session to Joined. Calling Join while already joined is
// a room switch: the new room and name replace the old ones.
func (s *Session) Join(roomID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return ErrSessionClosed
	}
	s.roomID = roomID
	s.displayName = displayName
	s.state = StateJoined
	return nil
}

// Disconnect moves the session to its terminal state and reports the room
// it was in, if any. Safe to call more than once.
func (s *Session) Disconnect() (roomID, displayName string, wasJoined bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasJoined = s.state == StateJoined
	roomID, displayName = s.roomID, s.displayName
	s.roomID, s.displayName = "", ""
	s.state = StateDisconnected
	return roomID, displayName, wasJoined
}

// Room reports the current room and display name. joined is false for
// sessions that never joined or already disconnected.
func (s *Session) Room() (roomID, displayName string, joined bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID, s.displayName, s.state == StateJoined
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) ConnectedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedAt
}
