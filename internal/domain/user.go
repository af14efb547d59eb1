// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen = 36
	MinPasswordLen = 6
)

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
	ErrEmailInvalid    = errors.New("email invalid")
	ErrPasswordTooWeak = errors.New("password too short")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`

	// Password hash never leaves the repository layer in responses.
	PasswordHash string `json:"-"`

	Verified           bool   `json:"verified"`
	VerifyToken        string `json:"-"`
	VerifyTokenExpires int64  `json:"-"`

	// CreatedRoomID is the room this user owns, CurrentRoomID the room the
	// user is marked as participating in. Either may be stale; see
	// repository.ClearCurrentRoom.
	CreatedRoomID RoomID `json:"createdRoomId,omitempty"`
	CurrentRoomID RoomID `json:"currentRoomId,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username, email string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, ErrEmailInvalid
	}
	return &User{
		ID:       UserID(uuid.NewString()),
		Username: username,
		Email:    email,
	}, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// Actor is the (id, display name) pair attached to chat messages and to
// lastActionBy attribution on playback state.
type Actor struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}
