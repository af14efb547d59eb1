package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/app"
)

const writeWait = 5 * time.Second

// writePump owns the socket's send side. Every exit closes the connection;
// that unblocks readPump's ReadMessage, which runs the leaving path. Without
// it a cancelled connection (room eviction, liveness reaping) would keep its
// socket and goroutines alive forever.
func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ping := time.NewTicker(ctl.PingPeriod)
	defer ping.Stop()
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			// Deliver what was queued before the cancel, so an evicted
			// member still sees the room_deleted frame.
			ctl.drain(c)
			return
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.sync").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.sync").Msg("writePump write error")
				return
			}
		}
	}
}

// drain writes the frames already queued on the send channel, best effort.
func (ctl *Controller) drain(c *wsConn) {
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump owns the socket's receive side. On exit, for any reason, the
// connection runs the same leaving path as an explicit leave.
func (ctl *Controller) readPump(ctx context.Context, sid app.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.sync").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(context.Background(), sid)
		ctl.chatLimit.Forget(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.dispatch(ctx, sid, c, data)
		}
	}
}

// dispatch routes one inbound envelope. A panic in a handler is contained
// here: the command is dropped, the session stays as it was, the room keeps
// running for everyone else.
func (ctl *Controller) dispatch(ctx context.Context, sid app.SessionID, c *wsConn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("module", "adapters.sync").Str("sid", string(sid)).Msg("command handler panicked, command dropped")
		}
	}()

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad json")
		return
	}

	switch env.Type {
	case "send_message":
		ctl.handleSendMessage(sid, data)
	case "load_video":
		ctl.handleLoadVideo(sid, data)
	case "video_play":
		ctl.handlePlay(sid, data)
	case "video_pause":
		ctl.handlePause(sid, data)
	case "video_seek":
		ctl.handleSeek(sid, data)
	case "grant_control_permission":
		ctl.handleGrant(sid, data)
	case "revoke_control_permission":
		ctl.handleRevoke(sid, data)
	case "request_room_state":
		ctl.handleRequestRoomState(sid, data)
	case "request_chat_history":
		ctl.handleRequestChatHistory(sid, data)
	case "leave":
		ctl.handleLeave(ctx, sid)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "adapters.sync").Str("type", env.Type).Msg("unknown message type")
	}
}

func (ctl *Controller) handlePing(c *wsConn) {
	b, _ := json.Marshal(app.Envelope{Type: "pong"})
	_ = c.TrySend(b)
}
