package sync

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/app"
	"github.com/dkeye/WatchParty/internal/domain"
)

// Inbound payload keys mirror the original web client's wire shapes.

func (ctl *Controller) handleLoadVideo(sid app.SessionID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad load_video payload")
		return
	}
	ctl.Orch.LoadVideo(sid, domain.RoomID(p.RoomID), p.URL)
}

func (ctl *Controller) handlePlay(sid app.SessionID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad video_play payload")
		return
	}
	ctl.Orch.Play(sid, domain.RoomID(p.RoomID))
}

func (ctl *Controller) handlePause(sid app.SessionID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad video_pause payload")
		return
	}
	ctl.Orch.Pause(sid, domain.RoomID(p.RoomID))
}

func (ctl *Controller) handleSeek(sid app.SessionID, data []byte) {
	var p struct {
		RoomID string  `json:"roomId"`
		Time   float64 `json:"time"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad video_seek payload")
		return
	}
	ctl.Orch.Seek(sid, domain.RoomID(p.RoomID), p.Time)
}

func (ctl *Controller) handleGrant(sid app.SessionID, data []byte) {
	var p struct {
		RoomID       string `json:"roomId"`
		TargetUserID string `json:"targetUserId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad grant payload")
		return
	}
	ctl.Orch.GrantControl(sid, domain.RoomID(p.RoomID), domain.UserID(p.TargetUserID))
}

func (ctl *Controller) handleRevoke(sid app.SessionID, data []byte) {
	var p struct {
		RoomID       string `json:"roomId"`
		TargetUserID string `json:"targetUserId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.sync").Msg("bad revoke payload")
		return
	}
	ctl.Orch.RevokeControl(sid, domain.RoomID(p.RoomID), domain.UserID(p.TargetUserID))
}
