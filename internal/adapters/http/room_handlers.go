package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/adapters/auth"
	"github.com/dkeye/WatchParty/internal/app"
	"github.com/dkeye/WatchParty/internal/domain"
	"github.com/dkeye/WatchParty/internal/repository/sqlite"
)

type RoomHandlers struct {
	Repo *sqlite.Repository
	Orch *app.Orchestrator
}

type createRoomRequest struct {
	RoomName string `json:"roomName" binding:"required"`
}

// Create enforces the original ownership rules: one owned room per user, one
// room at a time.
func (h *RoomHandlers) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Room name is required."})
		return
	}

	user, err := h.Repo.GetUser(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	if user.CreatedRoomID != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You already own a room. Please delete it before creating a new one."})
		return
	}
	if user.CurrentRoomID != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You are already in a room. Please leave it before creating a new one."})
		return
	}

	room, err := domain.NewRoom(domain.RoomName(req.RoomName), user.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := h.Repo.CreateRoom(c.Request.Context(), room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error creating room"})
		return
	}

	h.Orch.NotifyRoomCreated(room)
	c.JSON(http.StatusCreated, room)
}

// Join applies the one-room-at-a-time rule, self-healing a stale
// current-room pointer left behind by a deleted room.
func (h *RoomHandlers) Join(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))

	user, err := h.Repo.GetUser(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}

	if user.CurrentRoomID != "" {
		existing, err := h.Repo.GetRoom(c.Request.Context(), user.CurrentRoomID)
		switch {
		case err == nil && existing.ID == roomID:
			c.JSON(http.StatusBadRequest, gin.H{"message": "You are already in this room."})
			return
		case err == nil:
			c.JSON(http.StatusBadRequest, gin.H{"message": "You are already in another room. Please leave it before joining a new one."})
			return
		case errors.Is(err, sqlite.ErrNotFound):
			// Stale pointer; clear it and let the join proceed.
			if err := h.Repo.ClearCurrentRoom(c.Request.Context(), user.ID); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Str("user", string(user.ID)).Msg("clear stale room pointer")
			}
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error joining room"})
			return
		}
	}

	if _, err := h.Repo.GetRoom(c.Request.Context(), roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found."})
		return
	}
	if err := h.Repo.AddMember(c.Request.Context(), roomID, user.ID); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("add member")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error joining room"})
		return
	}

	view, err := h.Repo.GetRoomView(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error joining room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully joined room", "room": view})
}

// Leave rejects the owner; deleting the room is the owner's way out.
func (h *RoomHandlers) Leave(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	user := auth.CurrentUser(c)

	room, err := h.Repo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found."})
		return
	}
	if room.OwnerID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Owner cannot leave the room. Please delete the room instead."})
		return
	}

	h.Orch.CompleteLeave(c.Request.Context(), user, roomID)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully left room."})
}

// Delete is the owner-only explicit room ending: persisted cascade first,
// then live eviction of every connected member.
func (h *RoomHandlers) Delete(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	user := auth.CurrentUser(c)

	room, err := h.Repo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found."})
		return
	}
	if room.OwnerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"message": "You are not authorized to delete this room."})
		return
	}

	if err := h.Repo.DeleteRoomCascade(c.Request.Context(), roomID); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("delete room")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error deleting room"})
		return
	}
	h.Orch.EvictRoom(roomID)

	c.JSON(http.StatusOK, gin.H{"message": "Room successfully deleted."})
}

func (h *RoomHandlers) List(c *gin.Context) {
	rooms, err := h.Repo.ListRoomViews(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error fetching rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandlers) Get(c *gin.Context) {
	view, err := h.Repo.GetRoomView(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if errors.Is(err, sqlite.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error fetching room details"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// MyRoom returns the room the user is in, or the one they own when idle.
func (h *RoomHandlers) MyRoom(c *gin.Context) {
	user, err := h.Repo.GetUser(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}

	lookup := user.CurrentRoomID
	if lookup == "" {
		lookup = user.CreatedRoomID
	}
	var view *sqlite.RoomView
	if lookup != "" {
		view, err = h.Repo.GetRoomView(c.Request.Context(), lookup)
		if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error fetching user's room"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"room": view, "createdRoomId": user.CreatedRoomID})
}
