package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 100

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type (
	RoomName string
	// RoomID is the shareable, user-facing identifier of a room.
	RoomID string
)

// Room is the persisted entity. Live playback/authorization state lives in
// core.Session, keyed by Room.ID.
type Room struct {
	ID        RoomID    `json:"roomId"`
	Name      RoomName  `json:"name"`
	OwnerID   UserID    `json:"createdBy"`
	HostID    UserID    `json:"host"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewRoom(name RoomName, owner UserID) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	return &Room{
		ID:        RoomID(uuid.NewString()),
		Name:      name,
		OwnerID:   owner,
		HostID:    owner,
		CreatedAt: time.Now(),
	}, nil
}
