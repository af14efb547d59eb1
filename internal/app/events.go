package app

// Outbound event names. Broadcast to the room unless a handler sends them
// scoped to one connection.
const (
	EvtSyncRoomState      = "sync_room_state"
	EvtUpdateParticipants = "update_participants"
	EvtReceiveMessage     = "receive_message"
	EvtChatHistory        = "chat_history"
	EvtControlError       = "control_error"
	EvtHostChanged        = "host_changed"
	EvtVideoLoaded        = "video_loaded"
	EvtUserLeftRoom       = "user_left_room"
	EvtLeft               = "left"

	// Out-of-room side channel for dashboards.
	EvtRoomCreated    = "room_created"
	EvtRoomDeleted    = "room_deleted"
	EvtUserRoomStatus = "user_room_status_changed"
)
