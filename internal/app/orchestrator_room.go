package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/domain"
)

type roomRef struct {
	RoomID domain.RoomID `json:"roomId"`
}

type hostChange struct {
	RoomID    domain.RoomID `json:"roomId"`
	NewHostID domain.UserID `json:"newHostId"`
}

type memberLeft struct {
	RoomID   domain.RoomID `json:"roomId"`
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

type roomStatus struct {
	UserID        domain.UserID  `json:"userId"`
	CurrentRoomID *domain.RoomID `json:"currentRoomId"`
}

// Join attaches a registered connection to a room and runs the join
// reconciliation: session lookup/init, forced-pause snapshot broadcast to the
// whole room, presence broadcast, chat replay to the joiner. A missing room
// record is connection-fatal for the caller.
func (o *Orchestrator) Join(ctx context.Context, sid SessionID, roomID domain.RoomID) error {
	user, _, ok := o.Registry.Lookup(sid)
	if !ok {
		return core.ErrUnauthenticated
	}
	room, err := o.Rooms.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomID, core.ErrRoomNotFound)
	}

	o.Registry.SetRoom(sid, roomID)
	sess := o.Sessions.GetOrInit(roomID, user.ID, room.HostID)
	snap := sess.JoinSync(domain.Actor{ID: user.ID, Username: user.Username}, o.now())

	o.Pub.Publish(roomID, EvtSyncRoomState, snap)
	o.Pub.Publish(roomID, EvtUpdateParticipants, o.Registry.Participants(roomID))
	o.Pub.PublishTo(sid, EvtChatHistory, o.Chat.History(roomID))

	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("user", string(user.ID)).Msg("joined room")
	return nil
}

// Leave handles an explicit leave: the connection stays open but detaches
// from its room.
func (o *Orchestrator) Leave(ctx context.Context, sid SessionID) {
	user, roomID, ok := o.Registry.Lookup(sid)
	if !ok || roomID == "" {
		return
	}
	o.departRoom(ctx, sid, user, roomID)
	o.Pub.PublishTo(sid, EvtLeft, nil)
}

// Disconnect runs the same leaving path as an explicit leave, then forgets
// the connection. Transport-level reaping of a silent connection lands here
// too; there is no separate zombie state.
func (o *Orchestrator) Disconnect(ctx context.Context, sid SessionID) {
	user, roomID, ok := o.Registry.Lookup(sid)
	if !ok {
		return
	}
	if roomID != "" {
		o.departRoom(ctx, sid, user, roomID)
	}
	o.Registry.Unbind(sid)
}

// departRoom detaches the connection and, when this was the identity's last
// connection in the room, completes the leave.
func (o *Orchestrator) departRoom(ctx context.Context, sid SessionID, user *domain.User, roomID domain.RoomID) {
	o.Registry.ClearRoom(sid)

	if o.Registry.RemainsInRoom(roomID, user.ID, sid) {
		o.Pub.Publish(roomID, EvtUpdateParticipants, o.Registry.Participants(roomID))
		return
	}
	o.CompleteLeave(ctx, user, roomID)
}

// CompleteLeave runs the membership bookkeeping for an identity leaving a
// room: deterministic host handoff, persisted member/pointer cleanup, room
// and global notices. Also the path the HTTP leave route takes.
func (o *Orchestrator) CompleteLeave(ctx context.Context, user *domain.User, roomID domain.RoomID) {
	o.transferHostIfNeeded(ctx, user.ID, roomID)

	if err := o.Rooms.RemoveMember(ctx, roomID, user.ID); err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(roomID)).Str("user", string(user.ID)).Msg("remove member")
	}
	if err := o.Rooms.ClearCurrentRoom(ctx, user.ID); err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("user", string(user.ID)).Msg("clear current room")
	}

	o.Pub.Publish(roomID, EvtUserLeftRoom, memberLeft{RoomID: roomID, UserID: user.ID, Username: user.Username})
	o.Pub.Publish(roomID, EvtUpdateParticipants, o.Registry.Participants(roomID))
	o.Pub.PublishGlobal(EvtUserRoomStatus, roomStatus{UserID: user.ID, CurrentRoomID: nil})
}

// transferHostIfNeeded hands primary control to another member when the live
// host leaves: the persisted owner when still present, otherwise the
// earliest-joined remaining member. The leaver is never their own successor;
// on an HTTP leave their socket may still be attached to the room, so the
// presence list cannot be used as-is. With nobody else connected the host
// falls back to the persisted owner. The host_changed broadcast goes out
// before any later command can be processed for the room.
func (o *Orchestrator) transferHostIfNeeded(ctx context.Context, leaving domain.UserID, roomID domain.RoomID) {
	sess, ok := o.Sessions.Get(roomID)
	if !ok || sess.HostID() != leaving {
		return
	}
	var remaining []Participant
	for _, m := range o.Registry.Participants(roomID) {
		if m.UserID != leaving {
			remaining = append(remaining, m)
		}
	}
	room, err := o.Rooms.GetRoom(ctx, roomID)

	var newHost domain.UserID
	switch {
	case len(remaining) > 0:
		newHost = remaining[0].UserID
		if err == nil {
			for _, m := range remaining {
				if m.UserID == room.OwnerID {
					newHost = m.UserID
					break
				}
			}
		}
	case err == nil && room.OwnerID != leaving:
		newHost = room.OwnerID
	default:
		return
	}
	snap, changed := sess.TransferHost(newHost)
	if !changed {
		return
	}
	if err := o.Rooms.UpdateHost(ctx, roomID, newHost); err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(roomID)).Msg("persist host change")
	}
	o.Pub.Publish(roomID, EvtHostChanged, hostChange{RoomID: roomID, NewHostID: newHost})
	o.Pub.Publish(roomID, EvtSyncRoomState, snap)
	log.Info().Str("module", "app.orch").Str("room", string(roomID)).Str("new_host", string(newHost)).Msg("host transferred")
}

// EvictRoom ends the live side of a deleted room: every connected member
// learns the room ended (distinct from a voluntary leave), is forced through
// the leaving path, and the session and chat log are dropped. Persisted-side
// cleanup is the caller's job and happens before this.
func (o *Orchestrator) EvictRoom(roomID domain.RoomID) {
	o.Pub.PublishGlobal(EvtRoomDeleted, roomRef{RoomID: roomID})
	for _, m := range o.Registry.membersOfRoom(roomID) {
		o.Registry.ClearRoom(m.SID)
		o.Registry.Cancel(m.SID)
	}
	o.Sessions.Delete(roomID)
	o.Chat.Drop(roomID)
	log.Info().Str("module", "app.orch").Str("room", string(roomID)).Msg("room evicted")
}
