package app

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/domain"
)

// RoomDirectory is the persisted-room collaborator the sync protocol
// consumes: ownership lookup plus the membership bookkeeping done when a
// viewer leaves. All of it runs outside any session lock.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	UpdateHost(ctx context.Context, id domain.RoomID, host domain.UserID) error
	RemoveMember(ctx context.Context, id domain.RoomID, user domain.UserID) error
	ClearCurrentRoom(ctx context.Context, user domain.UserID) error
}

// Orchestrator drives the per-connection synchronization protocol: join,
// control commands, chat, leave/disconnect and room eviction. It owns no
// state of its own; it wires the connection registry, the session registry
// and the chat buffer to the publisher.
type Orchestrator struct {
	Registry *Registry
	Sessions *core.SessionRegistry
	Chat     *core.ChatBuffer
	Rooms    RoomDirectory
	Pub      Publisher

	// Now is the wall clock, overridable in tests.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Register binds an authenticated connection. Must precede Join.
func (o *Orchestrator) Register(sid SessionID, user *domain.User, conn SignalConnection, cancel context.CancelFunc) {
	o.Registry.Bind(sid, user, conn, cancel)
}

// commandTarget resolves a command's session, enforcing that the command's
// room id matches the room this connection joined. A mismatch is dropped
// without side effects; a command against a room with no live session is a
// soft error scoped to the sender.
func (o *Orchestrator) commandTarget(sid SessionID, roomID domain.RoomID) (*domain.User, *core.Session, bool) {
	user, joined, ok := o.Registry.Lookup(sid)
	if !ok {
		return nil, nil, false
	}
	if joined == "" || joined != roomID {
		log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("joined", string(joined)).Msg("command targets a room the connection is not in")
		return nil, nil, false
	}
	sess, ok := o.Sessions.Get(roomID)
	if !ok {
		o.Pub.PublishTo(sid, EvtControlError, controlError{Message: "Room is not active."})
		return nil, nil, false
	}
	return user, sess, true
}

type controlError struct {
	Message string `json:"message"`
}

// SendMessage appends a chat message and fans it out to the room.
func (o *Orchestrator) SendMessage(sid SessionID, roomID domain.RoomID, text string) {
	user, _, ok := o.commandTarget(sid, roomID)
	if !ok || text == "" {
		return
	}
	msg := domain.ChatMessage{
		ID:        ulid.Make().String(),
		Text:      text,
		Sender:    domain.Actor{ID: user.ID, Username: user.Username},
		Timestamp: o.now().UnixMilli(),
	}
	o.Chat.Append(roomID, msg)
	o.Pub.Publish(roomID, EvtReceiveMessage, msg)
}

// RequestChatHistory replays the full room log to the requester only.
func (o *Orchestrator) RequestChatHistory(sid SessionID, roomID domain.RoomID) {
	if _, _, ok := o.commandTarget(sid, roomID); !ok {
		return
	}
	o.Pub.PublishTo(sid, EvtChatHistory, o.Chat.History(roomID))
}

// RequestRoomState resends the authoritative snapshot and the presence list,
// scoped to the requester.
func (o *Orchestrator) RequestRoomState(sid SessionID, roomID domain.RoomID) {
	_, sess, ok := o.commandTarget(sid, roomID)
	if !ok {
		return
	}
	o.Pub.PublishTo(sid, EvtSyncRoomState, sess.Snapshot())
	o.Pub.PublishTo(sid, EvtUpdateParticipants, o.Registry.Participants(roomID))
}

// NotifyRoomCreated pushes a dashboard notice for a freshly persisted room.
func (o *Orchestrator) NotifyRoomCreated(room *domain.Room) {
	o.Pub.PublishGlobal(EvtRoomCreated, room)
}
