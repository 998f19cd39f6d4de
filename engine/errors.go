package engine

import "errors"

var (
	// ErrUnauthorized is returned when a non-admin invokes an admin
	// operation. No state changes.
	ErrUnauthorized = errors.New("admin privileges required")
	// ErrNoEligiblePlayers is returned for a force start with no funded
	// player in the lobby.
	ErrNoEligiblePlayers = errors.New("no players with balls in the lobby")
	// ErrRaceInProgress rejects a promotion while a race is running.
	// At most one race is ever live; the second request is refused,
	// never silently started.
	ErrRaceInProgress = errors.New("a race is already running")
	// ErrStopped is returned when the engine loop has shut down.
	ErrStopped = errors.New("engine stopped")
)
