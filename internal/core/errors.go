package core

import "errors"

var (
	// ErrUnauthenticated means the connection presented a bad, missing or
	// expired credential. Always connection-fatal.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRoomNotFound means the target room has no backing record.
	// Connection-fatal on join, soft for commands referencing a stale id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrControlDenied means the authorization predicate failed. Never fatal;
	// the sender gets a scoped notice and nothing is mutated or broadcast.
	ErrControlDenied = errors.New("control denied")
)
