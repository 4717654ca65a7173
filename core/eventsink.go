package core

import (
	"context"

	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/schema"
)

// EventSink receives the events surfaced by the engine.
type EventSink interface {
	OnEvent(event schema.Event)
}

// Sender delivers outbound protocol messages.
type Sender interface {
	Send(ctx context.Context, req protocol.Request) error
}

// Viewport is the pannable, zoomable tile grid the engine draws into.
type Viewport interface {
	Zoom() int
	// VisibleBounds is the visible extent in plane coordinates.
	VisibleBounds() coords.FRect
	// Size is the viewport size in pixels.
	Size() coords.FPoint
	// SetMaxBounds limits panning to the document extent in twips.
	SetMaxBounds(doc schema.Rect)
	// Refresh re-evaluates every active cell for part, reporting cells that
	// leave or enter through Engine.TileLeft and Engine.TileEntered.
	Refresh(part int)
	// FocusInput returns keyboard focus to the text entry surface.
	FocusInput()
}

type discardSink struct{}

func (discardSink) OnEvent(schema.Event) {}
