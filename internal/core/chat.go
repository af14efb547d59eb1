package core

import (
	"sync"

	"github.com/dkeye/WatchParty/internal/domain"
)

// ChatBuffer holds the per-room ordered chat log. Messages live exactly as
// long as the room: Drop on room deletion loses them. Ordering is append
// order; the timestamp on a message is display metadata only.
type ChatBuffer struct {
	mu   sync.RWMutex
	logs map[domain.RoomID][]domain.ChatMessage
}

func NewChatBuffer() *ChatBuffer {
	return &ChatBuffer{logs: make(map[domain.RoomID][]domain.ChatMessage)}
}

func (b *ChatBuffer) Append(roomID domain.RoomID, msg domain.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[roomID] = append(b.logs[roomID], msg)
}

// History returns a copy of the full log, oldest first. Never nil, so the
// wire encoding is always a JSON array.
func (b *ChatBuffer) History(roomID domain.RoomID) []domain.ChatMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msgs := b.logs[roomID]
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

func (b *ChatBuffer) Drop(roomID domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.logs, roomID)
}
