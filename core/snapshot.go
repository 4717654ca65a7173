package core

import (
	"pkt.systems/tilesync/internal/overlay"
	"pkt.systems/tilesync/internal/status"
	"pkt.systems/tilesync/internal/tilecache"
	"pkt.systems/tilesync/schema"
)

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Status          status.State
	Slots           []tilecache.Slot
	EmptyTiles      int
	PrefetchEntries int
	Cursor          CursorSnapshot
	Selection       []schema.Rect
	SelectionStart  schema.Rect
	SelectionEnd    schema.Rect
	Handles         [2]overlay.HandleMarker
	Graphic         *overlay.GraphicOverlay
	Content         string
	SearchNotFound  bool
	CommandStates   map[string]string
	Styles          map[string]any
}

// CursorSnapshot is the cursor state.
type CursorSnapshot struct {
	Rect           schema.Rect
	Visible        bool
	OverlayVisible bool
	Marker         *overlay.Marker
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Status:          e.status.State(),
		Slots:           e.tiles.Slots(),
		EmptyTiles:      e.tiles.EmptyTiles(),
		PrefetchEntries: e.tiles.PrefetchLen(),
		Selection:       e.overlay.Selection(),
		Handles:         e.overlay.Handles(),
		Content:         e.overlay.Content(),
		SearchNotFound:  e.search.IsNotFound(),
		CommandStates:   make(map[string]string, len(e.commandStates)),
		Styles:          e.styles,
	}
	snap.Cursor.Rect, snap.Cursor.Visible, snap.Cursor.OverlayVisible = e.overlay.Cursor()
	if marker, ok := e.overlay.CursorMarker(); ok {
		snap.Cursor.Marker = &marker
	}
	snap.SelectionStart, snap.SelectionEnd = e.overlay.SelectionBounds()
	if g, ok := e.overlay.Graphic(); ok {
		snap.Graphic = &g
	}
	for k, v := range e.commandStates {
		snap.CommandStates[k] = v
	}
	return snap
}
