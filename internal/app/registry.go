package app

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/domain"
)

// SessionID identifies one live connection (one socket).
type SessionID string

// Frame is a marshaled outbound event.
type Frame []byte

// SignalConnection abstracts the transport endpoint of one connection.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Participant is the connection-derived presence view: (connection id,
// identity id, display name). Recomputed on demand, never stored as truth.
type Participant struct {
	ID       SessionID     `json:"id"`
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

type connEntry struct {
	user   *domain.User
	roomID domain.RoomID // "" for general (dashboard) connections
	conn   SignalConnection
	cancel context.CancelFunc
	seq    uint64 // join order within the room
}

// Registry tracks live connections and which room each one is attached to.
// It is the ground truth the presence list is derived from. The registry lock
// guards only the map; it is never held across I/O.
type Registry struct {
	mu      sync.RWMutex
	conns   map[SessionID]*connEntry
	nextSeq uint64
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[SessionID]*connEntry)}
}

// Bind registers an authenticated connection. Identity must already be
// resolved; unauthenticated connections are never bound.
func (r *Registry) Bind(sid SessionID, user *domain.User, conn SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = &connEntry{user: user, conn: conn, cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("bound connection")
}

// SetRoom attaches the connection to a room and stamps its join order.
func (r *Registry) SetRoom(sid SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[sid]
	if !ok {
		return false
	}
	r.nextSeq++
	e.roomID = roomID
	e.seq = r.nextSeq
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Msg("attached to room")
	return true
}

// ClearRoom detaches the connection from its room, keeping it bound.
func (r *Registry) ClearRoom(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[sid]; ok {
		e.roomID = ""
	}
}

func (r *Registry) Unbind(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
}

// Lookup returns the connection's identity and joined room.
func (r *Registry) Lookup(sid SessionID) (*domain.User, domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[sid]
	if !ok {
		return nil, "", false
	}
	return e.user, e.roomID, ok
}

type connSnap struct {
	SID  SessionID
	User *domain.User
	Conn SignalConnection
	seq  uint64
}

// membersOfRoom snapshots the room's connections in join order.
func (r *Registry) membersOfRoom(roomID domain.RoomID) []connSnap {
	r.mu.RLock()
	out := make([]connSnap, 0, 4)
	for sid, e := range r.conns {
		if e.roomID == roomID && e.roomID != "" {
			out = append(out, connSnap{SID: sid, User: e.user, Conn: e.conn, seq: e.seq})
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Participants recomputes the live presence list for a room, join order.
// Never nil, so it always encodes as a JSON array.
func (r *Registry) Participants(roomID domain.RoomID) []Participant {
	members := r.membersOfRoom(roomID)
	out := make([]Participant, 0, len(members))
	for _, m := range members {
		out = append(out, Participant{ID: m.SID, UserID: m.User.ID, Username: m.User.Username})
	}
	return out
}

// RemainsInRoom reports whether identity uid still has a live connection in
// the room other than the one identified by except.
func (r *Registry) RemainsInRoom(roomID domain.RoomID, uid domain.UserID, except SessionID) bool {
	for _, m := range r.membersOfRoom(roomID) {
		if m.SID != except && m.User.ID == uid {
			return true
		}
	}
	return false
}

// Cancel tears the connection down through its context; the read/write pumps
// exit and the adapter closes the socket.
func (r *Registry) Cancel(sid SessionID) {
	r.mu.RLock()
	e, ok := r.conns[sid]
	r.mu.RUnlock()
	if ok && e.cancel != nil {
		e.cancel()
	}
}

func (r *Registry) allConns() []connSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connSnap, 0, len(r.conns))
	for sid, e := range r.conns {
		out = append(out, connSnap{SID: sid, User: e.user, Conn: e.conn, seq: e.seq})
	}
	return out
}
