// Package sync is the WebSocket transport of the room synchronization
// protocol: one connection per viewer, JSON envelopes both ways.
package sync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/adapters/auth"
	"github.com/dkeye/WatchParty/internal/app"
	"github.com/dkeye/WatchParty/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch       *app.Orchestrator
	Resolver   *auth.Resolver
	ReadLimit  int64
	PingPeriod time.Duration

	chatLimit *chatLimiter
}

func NewController(orch *app.Orchestrator, resolver *auth.Resolver, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		Orch:       orch,
		Resolver:   resolver,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
		chatLimit:  newChatLimiter(chatBurst, chatWindow),
	}
}

// wsConn implements app.SignalConnection over a gorilla websocket.
type wsConn struct {
	conn *websocket.Conn
	send chan app.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f app.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates and upgrades a connection. Identity resolution comes
// first: a bad credential terminates before any room side effect, at HTTP
// status level so the client sees a clean 401. A roomId query makes this a
// room-bound connection; without it the socket only carries the global
// dashboard events.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	user, err := ctl.Resolver.Resolve(c.Request.Context(), auth.BearerToken(c))
	if err != nil {
		log.Warn().Str("module", "adapters.sync").Msg("rejected unauthenticated socket")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return
	}
	roomID := domain.RoomID(c.Query("roomId"))

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	sid := app.SessionID(uuid.NewString())
	conn := &wsConn{conn: ws, send: make(chan app.Frame, 64)}
	ctx, cancel := context.WithCancel(ctx)

	ctl.Orch.Register(sid, user, conn, cancel)
	log.Info().Str("module", "adapters.sync").Str("sid", string(sid)).Str("user", string(user.ID)).Str("room", string(roomID)).Msg("new connection")

	if roomID != "" {
		if err := ctl.Orch.Join(ctx, sid, roomID); err != nil {
			log.Warn().Err(err).Str("module", "adapters.sync").Str("sid", string(sid)).Msg("join failed, terminating")
			ctl.Orch.Disconnect(ctx, sid)
			cancel()
			conn.Close()
			return
		}
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
