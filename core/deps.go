package core

import (
	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/sched"
)

// EngineDeps captures the collaborators of a session engine. Viewport and
// Sender are required.
type EngineDeps struct {
	Viewport   Viewport
	Sender     Sender
	EventSink  EventSink
	Scheduler  sched.Scheduler
	Projection coords.Projection
	Logger     pslog.Logger
}
