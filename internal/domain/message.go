package domain

// ChatMessage is an entry in a room's in-memory chat log. Timestamp is
// metadata for display only; ordering is append order.
type ChatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    Actor  `json:"sender"`
	Timestamp int64  `json:"timestamp"`
}
