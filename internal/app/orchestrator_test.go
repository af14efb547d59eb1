package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/domain"
)

// recordingPub captures every publish instead of touching a transport.
type pubEvent struct {
	Scope   string // "room", "conn", "global"
	RoomID  domain.RoomID
	SID     SessionID
	Event   string
	Payload any
}

type recordingPub struct {
	events []pubEvent
}

func (p *recordingPub) Publish(roomID domain.RoomID, event string, payload any) {
	p.events = append(p.events, pubEvent{Scope: "room", RoomID: roomID, Event: event, Payload: payload})
}

func (p *recordingPub) PublishTo(sid SessionID, event string, payload any) {
	p.events = append(p.events, pubEvent{Scope: "conn", SID: sid, Event: event, Payload: payload})
}

func (p *recordingPub) PublishGlobal(event string, payload any) {
	p.events = append(p.events, pubEvent{Scope: "global", Event: event, Payload: payload})
}

func (p *recordingPub) reset() { p.events = nil }

func (p *recordingPub) byEvent(event string) []pubEvent {
	var out []pubEvent
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPub) lastSnapshot(t *testing.T) core.Snapshot {
	t.Helper()
	syncs := p.byEvent(EvtSyncRoomState)
	require.NotEmpty(t, syncs, "expected a sync_room_state broadcast")
	snap, ok := syncs[len(syncs)-1].Payload.(core.Snapshot)
	require.True(t, ok)
	return snap
}

type fakeDirectory struct {
	rooms       map[domain.RoomID]*domain.Room
	hostUpdates []domain.UserID
	removed     []domain.UserID
}

func (d *fakeDirectory) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	room, ok := d.rooms[id]
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	return room, nil
}

func (d *fakeDirectory) UpdateHost(_ context.Context, id domain.RoomID, host domain.UserID) error {
	d.rooms[id].HostID = host
	d.hostUpdates = append(d.hostUpdates, host)
	return nil
}

func (d *fakeDirectory) RemoveMember(_ context.Context, _ domain.RoomID, user domain.UserID) error {
	d.removed = append(d.removed, user)
	return nil
}

func (d *fakeDirectory) ClearCurrentRoom(_ context.Context, _ domain.UserID) error { return nil }

type nopConn struct{ closed bool }

func (c *nopConn) TrySend(Frame) error { return nil }
func (c *nopConn) Close()              { c.closed = true }

type orchFixture struct {
	orch *Orchestrator
	pub  *recordingPub
	dir  *fakeDirectory
	now  time.Time
}

var fixT0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newFixture(room *domain.Room) *orchFixture {
	f := &orchFixture{
		pub: &recordingPub{},
		dir: &fakeDirectory{rooms: map[domain.RoomID]*domain.Room{room.ID: room}},
		now: fixT0,
	}
	f.orch = &Orchestrator{
		Registry: NewRegistry(),
		Sessions: core.NewSessionRegistry(),
		Chat:     core.NewChatBuffer(),
		Rooms:    f.dir,
		Pub:      f.pub,
		Now:      func() time.Time { return f.now },
	}
	return f
}

func (f *orchFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// connect registers a connection and joins it to the room.
func (f *orchFixture) connect(t *testing.T, sid SessionID, user *domain.User, roomID domain.RoomID) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.orch.Register(sid, user, &nopConn{}, cancel)
	require.NoError(t, f.orch.Join(ctx, sid, roomID))
	return cancel
}

var (
	u1 = &domain.User{ID: "u1", Username: "alice"}
	u2 = &domain.User{ID: "u2", Username: "bob"}
	u3 = &domain.User{ID: "u3", Username: "carol"}
)

func testRoom() *domain.Room {
	return &domain.Room{ID: "room-1", Name: "movie night", OwnerID: u1.ID, HostID: u1.ID}
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(testRoom())
	ctx := context.Background()
	f.orch.Register("sid-1", u1, &nopConn{}, func() {})

	err := f.orch.Join(ctx, "sid-1", "no-such-room")
	assert.ErrorIs(t, err, core.ErrRoomNotFound)
	assert.Empty(t, f.pub.events, "a failed join must not broadcast anything")
}

func TestJoinMidPlaybackForcesPause(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")

	f.orch.LoadVideo("sid-1", "room-1", "https://example.com/v.mp4")
	f.orch.Play("sid-1", "room-1")
	f.advance(5 * time.Second)

	f.pub.reset()
	f.connect(t, "sid-2", u2, "room-1")

	snap := f.pub.lastSnapshot(t)
	assert.False(t, snap.IsPlaying, "a join pauses the whole room")
	assert.InDelta(t, 5.0, snap.ReferenceTime, 1e-9)
	assert.Equal(t, f.now.UnixMilli(), snap.ReferenceTimestamp)
	require.NotNil(t, snap.LastActionBy)
	assert.Equal(t, "bob (joined)", snap.LastActionBy.Username)

	// The broadcast snapshot is the shared state, not a private copy.
	sess, ok := f.orch.Sessions.Get("room-1")
	require.True(t, ok)
	assert.False(t, sess.Snapshot().IsPlaying)

	parts := f.pub.byEvent(EvtUpdateParticipants)
	require.NotEmpty(t, parts)
	got, ok := parts[len(parts)-1].Payload.([]Participant)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, u1.ID, got[0].UserID, "presence list keeps join order")
	assert.Equal(t, u2.ID, got[1].UserID)

	// Chat replay goes to the joiner only.
	hist := f.pub.byEvent(EvtChatHistory)
	require.Len(t, hist, 1)
	assert.Equal(t, "conn", hist[0].Scope)
	assert.Equal(t, SessionID("sid-2"), hist[0].SID)
}

func TestGrantSeekRevokeFlow(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")
	f.orch.LoadVideo("sid-1", "room-1", "https://example.com/v.mp4")

	// A guest command before any grant is denied, scoped to the sender.
	f.pub.reset()
	f.orch.Play("sid-2", "room-1")
	denials := f.pub.byEvent(EvtControlError)
	require.Len(t, denials, 1)
	assert.Equal(t, SessionID("sid-2"), denials[0].SID)
	assert.Empty(t, f.pub.byEvent(EvtSyncRoomState), "a denied command broadcasts nothing")

	f.pub.reset()
	f.orch.GrantControl("sid-1", "room-1", u2.ID)
	snap := f.pub.lastSnapshot(t)
	assert.Equal(t, []domain.UserID{u2.ID}, snap.ControllerIDs)

	f.pub.reset()
	f.orch.Seek("sid-2", "room-1", 120)
	snap = f.pub.lastSnapshot(t)
	assert.Equal(t, 120.0, snap.ReferenceTime)
	require.NotNil(t, snap.LastActionBy)
	assert.Equal(t, u2.ID, snap.LastActionBy.ID, "the seek is attributed to the controller")

	f.pub.reset()
	f.orch.RevokeControl("sid-1", "room-1", u2.ID)
	snap = f.pub.lastSnapshot(t)
	assert.Empty(t, snap.ControllerIDs)

	// After the revoke the guest is back to denied, nothing moves.
	f.pub.reset()
	f.orch.Play("sid-2", "room-1")
	require.Len(t, f.pub.byEvent(EvtControlError), 1)
	assert.Empty(t, f.pub.byEvent(EvtSyncRoomState))
	sess, _ := f.orch.Sessions.Get("room-1")
	assert.Equal(t, 120.0, sess.Snapshot().ReferenceTime)
	assert.False(t, sess.Snapshot().IsPlaying)
}

func TestRedundantGrantNotRebroadcast(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.orch.GrantControl("sid-1", "room-1", u2.ID)

	f.pub.reset()
	f.orch.GrantControl("sid-1", "room-1", u2.ID)
	assert.Empty(t, f.pub.events)
}

func TestCommandForWrongRoomIsDropped(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")

	f.pub.reset()
	f.orch.Play("sid-1", "room-2")
	assert.Empty(t, f.pub.events)
	sess, _ := f.orch.Sessions.Get("room-1")
	assert.False(t, sess.Snapshot().IsPlaying)
}

func TestCommandWithoutLiveSession(t *testing.T) {
	f := newFixture(testRoom())
	f.orch.Register("sid-1", u1, &nopConn{}, func() {})
	// Attached but the session was never initialized (no join ran).
	f.orch.Registry.SetRoom("sid-1", "room-1")

	f.orch.Play("sid-1", "room-1")
	denials := f.pub.byEvent(EvtControlError)
	require.Len(t, denials, 1)
	assert.Equal(t, SessionID("sid-1"), denials[0].SID)
}

func TestChatFanoutAndReplay(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")

	f.pub.reset()
	f.orch.SendMessage("sid-1", "room-1", "hello")
	f.orch.SendMessage("sid-2", "room-1", "hi there")

	fanout := f.pub.byEvent(EvtReceiveMessage)
	require.Len(t, fanout, 2)
	first, ok := fanout[0].Payload.(domain.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "hello", first.Text)
	assert.Equal(t, u1.ID, first.Sender.ID)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, fixT0.UnixMilli(), first.Timestamp)

	f.pub.reset()
	f.orch.RequestChatHistory("sid-2", "room-1")
	hist := f.pub.byEvent(EvtChatHistory)
	require.Len(t, hist, 1)
	msgs, ok := hist[0].Payload.([]domain.ChatMessage)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "hi there", msgs[1].Text)
}

func TestEmptyMessageIgnored(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")

	f.pub.reset()
	f.orch.SendMessage("sid-1", "room-1", "")
	assert.Empty(t, f.pub.byEvent(EvtReceiveMessage))
}

func TestDisconnectTransfersHostToEarliestJoined(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")
	f.connect(t, "sid-3", u3, "room-1")

	f.pub.reset()
	f.orch.Disconnect(context.Background(), "sid-1")

	changes := f.pub.byEvent(EvtHostChanged)
	require.Len(t, changes, 1, "exactly one host_changed broadcast")
	change, ok := changes[0].Payload.(hostChange)
	require.True(t, ok)
	assert.Equal(t, u2.ID, change.NewHostID, "earliest-joined remaining member becomes host")
	assert.Equal(t, []domain.UserID{u2.ID}, f.dir.hostUpdates, "handoff is persisted")

	sess, _ := f.orch.Sessions.Get("room-1")
	assert.Equal(t, u2.ID, sess.HostID())

	lefts := f.pub.byEvent(EvtUserLeftRoom)
	require.Len(t, lefts, 1)
	left, ok := lefts[0].Payload.(memberLeft)
	require.True(t, ok)
	assert.Equal(t, u1.ID, left.UserID)
	assert.Equal(t, []domain.UserID{u1.ID}, f.dir.removed)

	statuses := f.pub.byEvent(EvtUserRoomStatus)
	require.Len(t, statuses, 1)
	assert.Equal(t, "global", statuses[0].Scope)

	_, _, bound := f.orch.Registry.Lookup("sid-1")
	assert.False(t, bound, "disconnect forgets the connection")
}

func TestHostHandoffPrefersOwner(t *testing.T) {
	room := testRoom()
	room.OwnerID = u3.ID
	f := newFixture(room)
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")
	f.connect(t, "sid-3", u3, "room-1")

	f.pub.reset()
	f.orch.Disconnect(context.Background(), "sid-1")

	changes := f.pub.byEvent(EvtHostChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, u3.ID, changes[0].Payload.(hostChange).NewHostID,
		"the persisted owner wins over join order")
}

func TestNonHostLeaveKeepsHost(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")

	f.pub.reset()
	f.orch.Disconnect(context.Background(), "sid-2")

	assert.Empty(t, f.pub.byEvent(EvtHostChanged))
	sess, _ := f.orch.Sessions.Get("room-1")
	assert.Equal(t, u1.ID, sess.HostID())
}

func TestHostLeaveOverHTTPTransfersWhileSocketAttached(t *testing.T) {
	room := testRoom()
	room.OwnerID = u3.ID // owner not connected
	f := newFixture(room)
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")

	// The HTTP leave route runs before the leaver's socket detaches, so the
	// leaver still shows up in the presence list. They must never be picked
	// as their own successor.
	f.pub.reset()
	f.orch.CompleteLeave(context.Background(), u1, "room-1")

	changes := f.pub.byEvent(EvtHostChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, u2.ID, changes[0].Payload.(hostChange).NewHostID)
	assert.Equal(t, []domain.UserID{u2.ID}, f.dir.hostUpdates, "handoff is persisted")

	sess, _ := f.orch.Sessions.Get("room-1")
	assert.Equal(t, u2.ID, sess.HostID())
}

func TestHostLeaveOverHTTPFallsBackToOwner(t *testing.T) {
	room := testRoom()
	room.OwnerID = u3.ID
	f := newFixture(room)
	f.connect(t, "sid-1", u1, "room-1")

	f.pub.reset()
	f.orch.CompleteLeave(context.Background(), u1, "room-1")

	// Nobody else is connected, so primary control reverts to the
	// persisted owner rather than staying with the departed host.
	assert.Equal(t, []domain.UserID{u3.ID}, f.dir.hostUpdates)
	sess, _ := f.orch.Sessions.Get("room-1")
	assert.Equal(t, u3.ID, sess.HostID())
}

func TestLastHostLeaveKeepsSession(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.orch.GrantControl("sid-1", "room-1", u2.ID)

	f.orch.Disconnect(context.Background(), "sid-1")

	// The empty room keeps its live state until the room is deleted.
	sess, ok := f.orch.Sessions.Get("room-1")
	require.True(t, ok)
	assert.Equal(t, u1.ID, sess.HostID())
	assert.True(t, sess.CanControl(u2.ID))
}

func TestSecondConnectionSameIdentity(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1a", u1, "room-1")
	f.connect(t, "sid-1b", u1, "room-1")

	f.pub.reset()
	f.orch.Disconnect(context.Background(), "sid-1a")

	// The identity is still present through sid-1b: presence update only.
	assert.Empty(t, f.pub.byEvent(EvtUserLeftRoom))
	assert.Empty(t, f.pub.byEvent(EvtHostChanged))
	assert.Empty(t, f.dir.removed)
	require.Len(t, f.pub.byEvent(EvtUpdateParticipants), 1)
	assert.True(t, f.orch.Registry.RemainsInRoom("room-1", u1.ID, ""))
}

func TestExplicitLeaveKeepsConnection(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")

	f.pub.reset()
	f.orch.Leave(context.Background(), "sid-1")

	lefts := f.pub.byEvent(EvtLeft)
	require.Len(t, lefts, 1)
	assert.Equal(t, SessionID("sid-1"), lefts[0].SID)

	_, roomID, bound := f.orch.Registry.Lookup("sid-1")
	assert.True(t, bound, "an explicit leave keeps the connection bound")
	assert.Empty(t, roomID)
}

func TestEvictRoomResetsLiveState(t *testing.T) {
	f := newFixture(testRoom())
	f.connect(t, "sid-1", u1, "room-1")
	f.connect(t, "sid-2", u2, "room-1")
	f.orch.GrantControl("sid-1", "room-1", u2.ID)
	f.orch.SendMessage("sid-1", "room-1", "hello")

	f.pub.reset()
	f.orch.EvictRoom("room-1")

	deleted := f.pub.byEvent(EvtRoomDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, "global", deleted[0].Scope)

	_, ok := f.orch.Sessions.Get("room-1")
	assert.False(t, ok)
	assert.Empty(t, f.orch.Chat.History("room-1"))
	assert.Empty(t, f.orch.Registry.Participants("room-1"))

	// A later re-creation starts from scratch: the joiner is host and no
	// controller grant survives.
	fresh := f.orch.Sessions.GetOrInit("room-1", u3.ID, "")
	assert.Equal(t, u3.ID, fresh.HostID())
	assert.False(t, fresh.CanControl(u2.ID))
}
