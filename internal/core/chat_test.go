package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/WatchParty/internal/domain"
)

func TestChatBufferAppendOrder(t *testing.T) {
	b := NewChatBuffer()
	for i, text := range []string{"first", "second", "third"} {
		b.Append("room-1", domain.ChatMessage{ID: string(rune('a' + i)), Text: text, Sender: guest})
	}

	got := b.History("room-1")
	assert.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "third", got[2].Text)
}

func TestChatBufferHistoryIsACopy(t *testing.T) {
	b := NewChatBuffer()
	b.Append("room-1", domain.ChatMessage{ID: "a", Text: "hi", Sender: guest})

	got := b.History("room-1")
	got[0].Text = "tampered"
	assert.Equal(t, "hi", b.History("room-1")[0].Text)
}

func TestChatBufferEmptyHistoryNotNil(t *testing.T) {
	b := NewChatBuffer()
	assert.NotNil(t, b.History("no-such-room"))
	assert.Empty(t, b.History("no-such-room"))
}

func TestChatBufferDropIsolatedPerRoom(t *testing.T) {
	b := NewChatBuffer()
	b.Append("room-1", domain.ChatMessage{ID: "a", Text: "one", Sender: guest})
	b.Append("room-2", domain.ChatMessage{ID: "b", Text: "two", Sender: guest2})

	b.Drop("room-1")
	assert.Empty(t, b.History("room-1"))
	assert.Len(t, b.History("room-2"), 1)
}
