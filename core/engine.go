// Package core hosts the session engine: it routes inbound protocol messages
// to the tile cache, the overlay and the status tracker, and turns their
// decisions into outbound requests, viewport commands and surfaced events.
package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/overlay"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/internal/sched"
	"pkt.systems/tilesync/internal/search"
	"pkt.systems/tilesync/internal/status"
	"pkt.systems/tilesync/internal/tilecache"
	"pkt.systems/tilesync/schema"
)

// Engine is the single-threaded context of one viewing session. Every method
// must be called from one goroutine at a time; Run provides that goroutine and
// Do posts work onto it. Timer callbacks never run on the timer's goroutine:
// they wait for Run, for the next Dispatch, or for Flush.
type Engine struct {
	cfg   schema.EngineConfig
	geom  coords.Transform
	view  Viewport
	send  Sender
	sink  EventSink
	timer sched.Scheduler
	log   pslog.Logger

	tiles   *tilecache.Manager
	overlay *overlay.Manager
	status  *status.Tracker
	search  *search.Controller

	selectionFetch *sched.Debounce
	styles         map[string]any
	commandStates  map[string]string

	tasks   chan func()
	running atomic.Bool
	done    chan struct{}

	// queued holds timer callbacks until the engine goroutine runs them.
	queueMu sync.Mutex
	queued  []func()
	wake    chan struct{}
}

// New constructs an Engine.
func New(cfg schema.EngineConfig, deps EngineDeps) (*Engine, error) {
	normalized, err := schema.NormalizeEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Viewport == nil {
		return nil, errors.New("viewport is required")
	}
	if deps.Sender == nil {
		return nil, errors.New("sender is required")
	}
	if deps.EventSink == nil {
		deps.EventSink = discardSink{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = sched.Timers{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	geom := coords.New(cfg.TileSize, cfg.TileTwips, cfg.ReferenceZoom, deps.Projection)
	e := &Engine{
		cfg:           cfg,
		geom:          geom,
		view:          deps.Viewport,
		send:          deps.Sender,
		sink:          deps.EventSink,
		log:           logger,
		tiles:         tilecache.New(geom, logger),
		overlay:       overlay.New(geom, logger),
		status:        status.New(cfg.Permission, logger),
		commandStates: make(map[string]string),
		tasks:         make(chan func(), 64),
		done:          make(chan struct{}),
		wake:          make(chan struct{}, 1),
	}
	e.timer = loopScheduler{inner: deps.Scheduler, engine: e}
	e.selectionFetch = sched.NewDebounce(e.timer, cfg.SelectionDebounce)
	e.search = search.New(e.timer, cfg.SearchRearm, logger)
	return e, nil
}

// Geometry returns the engine's coordinate transform.
func (e *Engine) Geometry() coords.Transform {
	return e.geom
}

// Start announces that the engine is attached to its viewport.
func (e *Engine) Start(ctx context.Context) {
	e.log.Info("engine attached", "permission", string(e.status.Permission()))
	e.emit(schema.Event{Type: schema.EventIndicator, Indicator: schema.IndicatorEvent{Status: schema.IndicatorLoaded}})
}

// Close cancels the pending timers.
func (e *Engine) Close() {
	e.selectionFetch.Stop()
	e.search.Stop()
}

func (e *Engine) emit(event schema.Event) {
	e.log.Trace("engine event", "type", string(event.Type))
	e.sink.OnEvent(event)
}

func (e *Engine) sendRequest(ctx context.Context, req protocol.Request) {
	if err := e.send.Send(ctx, req); err != nil {
		e.log.Warn("engine send failed", "err", err)
	}
}

func (e *Engine) overlayView() overlay.View {
	return overlay.View{
		Zoom:       e.view.Zoom(),
		Visible:    e.view.VisibleBounds(),
		Size:       e.view.Size(),
		Permission: e.status.Permission(),
	}
}

// raiseError surfaces an error event. An error carrying a message downgrades
// the session to read-only.
func (e *Engine) raiseError(ev schema.ErrorEvent) {
	e.log.Warn("engine error", "cmd", ev.Command, "kind", ev.Kind, "message", ev.Message)
	e.emit(schema.Event{Type: schema.EventError, Error: ev})
	if ev.Message != "" {
		e.setPermission(schema.PermissionReadOnly)
	}
}

func (e *Engine) setPermission(p schema.Permission) {
	if !e.status.SetPermission(p) {
		return
	}
	e.emit(schema.Event{Type: schema.EventPermission, Permission: schema.PermissionEvent{Permission: p}})
	e.overlay.RefreshCursor(e.overlayView())
}
