package core

import (
	"sync"
	"time"

	"github.com/dkeye/WatchParty/internal/domain"
)

// Snapshot is a self-consistent view of a session, safe to hand to clients.
// ReferenceTimestamp is unix milliseconds on the wire.
type Snapshot struct {
	RoomID             domain.RoomID   `json:"roomId"`
	HostID             domain.UserID   `json:"hostId"`
	ControllerIDs      []domain.UserID `json:"controllerIds"`
	MediaURL           string          `json:"url,omitempty"`
	ReferenceTime      float64         `json:"referenceTime"`
	ReferenceTimestamp int64           `json:"referenceTimestamp"`
	IsPlaying          bool            `json:"isPlaying"`
	LastActionBy       *domain.Actor   `json:"lastActionBy,omitempty"`
}

// Session is the in-memory authoritative playback/authorization state of one
// room. All access goes through its methods; each method holds the session
// mutex for the whole check-then-mutate-then-snapshot step, so commands apply
// atomically relative to each other (per-room single-writer discipline).
// Nothing here performs I/O while the lock is held.
type Session struct {
	mu           sync.Mutex
	roomID       domain.RoomID
	hostID       domain.UserID
	controllers  map[domain.UserID]struct{}
	playback     PlaybackState
	lastActionBy *domain.Actor
}

func newSession(roomID domain.RoomID, hostID domain.UserID, now time.Time) *Session {
	return &Session{
		roomID:      roomID,
		hostID:      hostID,
		controllers: make(map[domain.UserID]struct{}),
		playback:    PlaybackState{ReferenceTimestamp: now},
	}
}

func (s *Session) HostID() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

// CanControl reports whether id currently holds control authority.
func (s *Session) CanControl(id domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return canControl(s.hostID, s.controllers, id)
}

// Snapshot returns the raw stored state, without recomputing the position.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	ids := make([]domain.UserID, 0, len(s.controllers))
	for id := range s.controllers {
		ids = append(ids, id)
	}
	var by *domain.Actor
	if s.lastActionBy != nil {
		a := *s.lastActionBy
		by = &a
	}
	return Snapshot{
		RoomID:             s.roomID,
		HostID:             s.hostID,
		ControllerIDs:      ids,
		MediaURL:           s.playback.MediaURL,
		ReferenceTime:      s.playback.ReferenceTime,
		ReferenceTimestamp: s.playback.ReferenceTimestamp.UnixMilli(),
		IsPlaying:          s.playback.IsPlaying,
		LastActionBy:       by,
	}
}

// PositionAt computes the playback position as of now.
func (s *Session) PositionAt(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback.PositionAt(now)
}

// JoinSync reconciles the room with a new viewer: the in-flight position is
// frozen, the whole room is switched to paused at that position with a fresh
// reference instant, and the resulting snapshot is what every member receives.
// Mutating the shared state here (rather than sending the joiner a private
// copy) keeps every client converging on the same reference.
func (s *Session) JoinSync(joiner domain.Actor, now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback.ReferenceTime = s.playback.PositionAt(now)
	s.playback.IsPlaying = false
	s.playback.ReferenceTimestamp = now
	s.lastActionBy = &domain.Actor{ID: joiner.ID, Username: joiner.Username + " (joined)"}
	return s.snapshotLocked()
}

// Load loads new media, paused at zero.
func (s *Session) Load(actor domain.Actor, now time.Time, url string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canControl(s.hostID, s.controllers, actor.ID) {
		return Snapshot{}, ErrControlDenied
	}
	s.playback.ApplyLoad(now, url)
	s.lastActionBy = &actor
	return s.snapshotLocked(), nil
}

// Play resumes playback. A play while already playing is a no-op on the
// timing triple but still returns a snapshot for re-broadcast.
func (s *Session) Play(actor domain.Actor, now time.Time) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canControl(s.hostID, s.controllers, actor.ID) {
		return Snapshot{}, ErrControlDenied
	}
	if s.playback.ApplyPlay(now) {
		s.lastActionBy = &actor
	}
	return s.snapshotLocked(), nil
}

// Pause freezes playback at the current position.
func (s *Session) Pause(actor domain.Actor, now time.Time) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canControl(s.hostID, s.controllers, actor.ID) {
		return Snapshot{}, ErrControlDenied
	}
	if s.playback.ApplyPause(now) {
		s.lastActionBy = &actor
	}
	return s.snapshotLocked(), nil
}

// Seek moves the position; the playing flag is unchanged.
func (s *Session) Seek(actor domain.Actor, now time.Time, target float64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canControl(s.hostID, s.controllers, actor.ID) {
		return Snapshot{}, ErrControlDenied
	}
	s.playback.ApplySeek(now, target)
	s.lastActionBy = &actor
	return s.snapshotLocked(), nil
}

// Grant delegates control to target. Host only; granting to oneself is
// rejected, so the host can never appear in the controller set. The changed
// flag is false when target already held control.
func (s *Session) Grant(requester, target domain.UserID) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canGrantOrRevoke(s.hostID, requester, target) {
		return Snapshot{}, false, ErrControlDenied
	}
	if _, ok := s.controllers[target]; ok {
		return s.snapshotLocked(), false, nil
	}
	s.controllers[target] = struct{}{}
	return s.snapshotLocked(), true, nil
}

// Revoke withdraws delegated control from target. Host only.
func (s *Session) Revoke(requester, target domain.UserID) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canGrantOrRevoke(s.hostID, requester, target) {
		return Snapshot{}, false, ErrControlDenied
	}
	if _, ok := s.controllers[target]; !ok {
		return s.snapshotLocked(), false, nil
	}
	delete(s.controllers, target)
	return s.snapshotLocked(), true, nil
}

// TransferHost reassigns primary control. Delegated controllers are cleared:
// stale authority granted by the previous host does not survive the handoff.
// Reports false when to already is the host.
func (s *Session) TransferHost(to domain.UserID) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostID == to {
		return s.snapshotLocked(), false
	}
	s.hostID = to
	s.controllers = make(map[domain.UserID]struct{})
	return s.snapshotLocked(), true
}
