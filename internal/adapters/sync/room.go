package sync

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/app"
	"github.com/dkeye/WatchParty/internal/domain"
)

func (ctl *Controller) handleSendMessage(sid app.SessionID, data []byte) {
	var p struct {
		Room string `json:"room"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad send_message payload")
		return
	}
	if !ctl.chatLimit.Allow(sid) {
		log.Warn().Str("module", "adapters.sync").Str("sid", string(sid)).Msg("chat rate limited, message dropped")
		return
	}
	ctl.Orch.SendMessage(sid, domain.RoomID(p.Room), p.Text)
}

func (ctl *Controller) handleRequestRoomState(sid app.SessionID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad request_room_state payload")
		return
	}
	ctl.Orch.RequestRoomState(sid, domain.RoomID(p.RoomID))
}

func (ctl *Controller) handleRequestChatHistory(sid app.SessionID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad request_chat_history payload")
		return
	}
	ctl.Orch.RequestChatHistory(sid, domain.RoomID(p.RoomID))
}

// handleLeave detaches from the room without dropping the socket.
func (ctl *Controller) handleLeave(ctx context.Context, sid app.SessionID) {
	log.Info().Str("module", "adapters.sync").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(ctx, sid)
}
