package engine

import (
	"time"

	"github.com/wfunc/ballrace/models"
)

// Broadcaster is the engine's view of the transport fan-out. Broadcast
// failures are best-effort and never affect the simulation. Defined
// here to break the import cycle with the broadcast package.
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
}

// Metrics is the optional instrumentation hook; monitor.Monitor
// implements it. A nil Metrics disables instrumentation.
type Metrics interface {
	SetLobbyPlayers(count int)
	AddBallsSold(count int)
	IncRacesStarted()
	ObserveRaceFinished(duration time.Duration)
	ObserveTick(duration time.Duration)
}

// Recorder archives finished races. A nil Recorder disables archiving.
type Recorder interface {
	SaveRaceRecord(summary *models.RaceSummary) error
}
