package core

import "github.com/dkeye/WatchParty/internal/domain"

// canControl reports whether id may issue playback commands: the live host or
// any delegated controller.
func canControl(hostID domain.UserID, controllers map[domain.UserID]struct{}, id domain.UserID) bool {
	if id == hostID {
		return true
	}
	_, ok := controllers[id]
	return ok
}

// canGrantOrRevoke reports whether requester may alter the controller set.
// Only the primary host can, and never targeting themself.
func canGrantOrRevoke(hostID, requester, target domain.UserID) bool {
	return requester == hostID && target != requester
}
