package app

import (
	"errors"

	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/domain"
)

type videoLoaded struct {
	URL         string       `json:"url"`
	RequestedBy domain.Actor `json:"requestedBy"`
}

// LoadVideo loads new media into the room, paused at zero.
func (o *Orchestrator) LoadVideo(sid SessionID, roomID domain.RoomID, url string) {
	user, sess, ok := o.commandTarget(sid, roomID)
	if !ok || url == "" {
		return
	}
	actor := domain.Actor{ID: user.ID, Username: user.Username}
	snap, err := sess.Load(actor, o.now(), url)
	if denied(o, sid, err, "Only the host or a controller can load videos.") {
		return
	}
	o.Pub.Publish(roomID, EvtVideoLoaded, videoLoaded{URL: url, RequestedBy: actor})
	o.Pub.Publish(roomID, EvtSyncRoomState, snap)
}

func (o *Orchestrator) Play(sid SessionID, roomID domain.RoomID) {
	user, sess, ok := o.commandTarget(sid, roomID)
	if !ok {
		return
	}
	snap, err := sess.Play(domain.Actor{ID: user.ID, Username: user.Username}, o.now())
	if denied(o, sid, err, "Only the host or a controller can control playback.") {
		return
	}
	o.Pub.Publish(roomID, EvtSyncRoomState, snap)
}

func (o *Orchestrator) Pause(sid SessionID, roomID domain.RoomID) {
	user, sess, ok := o.commandTarget(sid, roomID)
	if !ok {
		return
	}
	snap, err := sess.Pause(domain.Actor{ID: user.ID, Username: user.Username}, o.now())
	if denied(o, sid, err, "Only the host or a controller can control playback.") {
		return
	}
	o.Pub.Publish(roomID, EvtSyncRoomState, snap)
}

func (o *Orchestrator) Seek(sid SessionID, roomID domain.RoomID, seconds float64) {
	user, sess, ok := o.commandTarget(sid, roomID)
	if !ok {
		return
	}
	snap, err := sess.Seek(domain.Actor{ID: user.ID, Username: user.Username}, o.now(), seconds)
	if denied(o, sid, err, "Only the host or a controller can control playback.") {
		return
	}
	o.Pub.Publish(roomID, EvtSyncRoomState, snap)
}

// GrantControl delegates playback control to target. Host only.
func (o *Orchestrator) GrantControl(sid SessionID, roomID domain.RoomID, target domain.UserID) {
	user, sess, ok := o.commandTarget(sid, roomID)
	if !ok || target == "" {
		return
	}
	snap, changed, err := sess.Grant(user.ID, target)
	if denied(o, sid, err, "Only the primary host can grant control permissions.") {
		return
	}
	if changed {
		o.Pub.Publish(roomID, EvtSyncRoomState, snap)
	}
}

// RevokeControl withdraws delegated control from target. Host only.
func (o *Orchestrator) RevokeControl(sid SessionID, roomID domain.RoomID, target domain.UserID) {
	user, sess, ok := o.commandTarget(sid, roomID)
	if !ok || target == "" {
		return
	}
	snap, changed, err := sess.Revoke(user.ID, target)
	if denied(o, sid, err, "Only the primary host can revoke control permissions.") {
		return
	}
	if changed {
		o.Pub.Publish(roomID, EvtSyncRoomState, snap)
	}
}

// denied sends the scoped notice when the authorization predicate failed.
// The session was not mutated and nothing is broadcast.
func denied(o *Orchestrator, sid SessionID, err error, msg string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrControlDenied) {
		o.Pub.PublishTo(sid, EvtControlError, controlError{Message: msg})
	}
	return true
}
