package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Session is the per-connection authenticated identity plus the set of rooms
// the connection has joined. Each connection owns exactly one session; it is
// never shared across connections.
type Session struct {
	UserID uuid.UUID
	Role   enums.ActorRole

	mu        sync.Mutex
	expiresAt time.Time
	rooms     map[uuid.UUID]struct{}
}

// NewSession builds a session for a freshly authenticated connection.
func NewSession(userID uuid.UUID, role enums.ActorRole, expiresAt time.Time) *Session {
	return &Session{
		UserID:    userID,
		Role:      role,
		expiresAt: expiresAt,
		rooms:     map[uuid.UUID]struct{}{},
	}
}

// Expired reports whether the session's token has lapsed.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expiresAt)
}

// Renew extends the session after a successful token renewal.
func (s *Session) Renew(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = expiresAt
}

// ExpiresAt returns the current token expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Join records room membership on the session side.
func (s *Session) Join(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[orderID] = struct{}{}
}

// Leave forgets room membership.
func (s *Session) Leave(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, orderID)
}

// Joined reports whether the session has joined the given room.
func (s *Session) Joined(orderID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[orderID]
	return ok
}

// Rooms snapshots the joined room set.
func (s *Session) Rooms() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}
