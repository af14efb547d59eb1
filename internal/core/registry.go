package core

import (
	"sync"
	"time"

	"github.com/dkeye/WatchParty/internal/domain"
	"github.com/rs/zerolog/log"
)

// SessionRegistry is the authoritative room-id -> live session map. Sessions
// are created lazily on first join and live until the backing room is deleted;
// transient all-members-disconnected gaps keep host and chat continuity.
//
// The registry lock only guards the map. Session state has its own per-room
// lock, so unrelated rooms never serialize against each other.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.RoomID]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[domain.RoomID]*Session)}
}

// GetOrInit returns the live session for roomID, creating it if absent with
// persistedHost as the initial host, or joiner when the room record carries no
// host. A live session is never re-initialized.
func (r *SessionRegistry) GetOrInit(roomID domain.RoomID, joiner, persistedHost domain.UserID) *Session {
	r.mu.RLock()
	sess, ok := r.sessions[roomID]
	r.mu.RUnlock()
	if ok {
		return sess
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok = r.sessions[roomID]; ok {
		return sess
	}
	hostID := persistedHost
	if hostID == "" {
		hostID = joiner
	}
	sess = newSession(roomID, hostID, time.Now())
	r.sessions[roomID] = sess
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Str("host", string(hostID)).Msg("session initialized")
	return sess
}

func (r *SessionRegistry) Get(roomID domain.RoomID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[roomID]
	return sess, ok
}

// Delete removes the live session. The next GetOrInit starts from scratch,
// with no memory of prior controllers.
func (r *SessionRegistry) Delete(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, roomID)
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Msg("session deleted")
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
