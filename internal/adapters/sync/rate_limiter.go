package sync

import (
	"sync"
	"time"

	"github.com/dkeye/WatchParty/internal/app"
)

const (
	chatBurst  = 10
	chatWindow = 10 * time.Second
)

// chatLimiter throttles inbound chat per connection with a sliding window.
// Blocked messages are dropped; playback commands are never throttled, a
// stale clock reference is worse than a chatty viewer.
type chatLimiter struct {
	mu      sync.Mutex
	history map[app.SessionID][]time.Time
	limit   int
	window  time.Duration
}

func newChatLimiter(limit int, window time.Duration) *chatLimiter {
	return &chatLimiter{
		history: make(map[app.SessionID][]time.Time),
		limit:   limit,
		window:  window,
	}
}

func (rl *chatLimiter) Allow(sid app.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	fresh := make([]time.Time, 0, rl.limit)
	for _, t := range rl.history[sid] {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}
	rl.history[sid] = append(fresh, now)
	return true
}

// Forget drops the connection's window on disconnect.
func (rl *chatLimiter) Forget(sid app.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, sid)
}
