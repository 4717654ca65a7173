package core

import (
	"context"

	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/logx"
	"pkt.systems/tilesync/internal/overlay"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/internal/tilecache"
	"pkt.systems/tilesync/schema"
)

// TileEntered creates the slot of a cell entering the active window and
// requests its tile unless a pre-fetched image was bound.
func (e *Engine) TileEntered(ctx context.Context, key schema.TileKey) {
	res := e.tiles.Add(key)
	if !res.Created {
		return
	}
	if res.AllLoaded {
		e.emit(schema.Event{Type: schema.EventTilesLoaded})
	}
	if res.Prefetched {
		return
	}
	logx.WithTile(e.log, key).Trace("engine tile requested")
	e.requestTile(ctx, key)
}

// TileLeft drops the slot of a cell leaving the active window.
func (e *Engine) TileLeft(ctx context.Context, key schema.TileKey) {
	e.tiles.Remove(key)
}

// ZoomChanged drops pre-fetched tiles of the old zoom and redraws the cursor
// at the new zoom without scrolling.
func (e *Engine) ZoomChanged(ctx context.Context) {
	if n := e.tiles.ClearPrefetch(); n > 0 {
		e.log.Debug("engine prefetch cleared on zoom", "entries", n)
	}
	e.overlay.RefreshCursor(e.overlayView())
}

// Prefetch requests the next ring of tiles around the visible area. It
// returns the number of requests sent.
func (e *Engine) Prefetch(ctx context.Context) int {
	if e.cfg.PrefetchRings == 0 {
		return 0
	}
	st := e.status.State()
	if st.Width == 0 || st.Height == 0 {
		return 0
	}
	e.tiles.ResetPrefetch(e.status.PrefetchPart())
	zoom := e.view.Zoom()
	visible := e.geom.PlaneRectToTwips(e.view.VisibleBounds(), zoom)
	var vis, limit tilecache.GridRect
	vis.MinX, vis.MinY, vis.MaxX, vis.MaxY = e.geom.GridRange(visible, zoom)
	limit.MinX, limit.MinY, limit.MaxX, limit.MaxY = e.geom.GridRange(schema.RectXYWH(0, 0, st.Width-1, st.Height-1), zoom)
	keys := e.tiles.NextPrefetch(vis, limit, zoom, e.cfg.PrefetchRings)
	for _, key := range keys {
		e.requestTile(ctx, key)
	}
	return len(keys)
}

// PostMouse sends a mouse event at a twips position.
func (e *Engine) PostMouse(ctx context.Context, eventType string, x, y, count int) {
	e.sendRequest(ctx, protocol.Mouse(eventType, x, y, count))
}

// PostKey sends a keyboard event.
func (e *Engine) PostKey(ctx context.Context, eventType string, charCode, keyCode int) {
	e.sendRequest(ctx, protocol.Key(eventType, charCode, keyCode))
}

// DragHandle advances a text selection handle drag at plane position pos.
func (e *Engine) DragHandle(ctx context.Context, h overlay.Handle, phase overlay.DragPhase, pos coords.FPoint) error {
	res, err := e.overlay.DragHandle(h, phase, pos, e.view.Zoom())
	if err != nil {
		return err
	}
	if res.Request != nil {
		e.sendRequest(ctx, *res.Request)
	}
	if res.Focus {
		e.view.FocusInput()
	}
	return nil
}

// EditGraphic reports a graphic selection resize step at plane position pos.
func (e *Engine) EditGraphic(ctx context.Context, phase overlay.EditPhase, pos coords.FPoint) {
	req, ok := e.overlay.EditGraphic(phase, pos, e.view.Zoom())
	if !ok {
		return
	}
	e.sendRequest(ctx, req)
}

// Search clears the selection and searches for phrase.
func (e *Engine) Search(ctx context.Context, phrase string, backward bool) error {
	e.ClearSelection(ctx)
	req, err := e.search.Command(phrase, backward)
	if err != nil {
		return err
	}
	e.sendRequest(ctx, req)
	return nil
}

// ClearSelection removes the selection overlays and hides the handles.
func (e *Engine) ClearSelection(ctx context.Context) {
	e.overlay.ClearSelections(e.overlayView())
}

// RequestSession asks the server for an editing session.
func (e *Engine) RequestSession(ctx context.Context) {
	e.sendRequest(ctx, protocol.RequestSession())
}

// SetPermission switches the permission mode.
func (e *Engine) SetPermission(ctx context.Context, p schema.Permission) {
	e.setPermission(p)
}

// Copy returns the selection text. Without content it surfaces an error,
// which also downgrades the session to read-only.
func (e *Engine) Copy(ctx context.Context) (string, error) {
	content, err := e.overlay.Copy()
	if err != nil {
		e.raiseError(schema.ErrorEvent{Command: "copy", Message: err.Error()})
		return "", err
	}
	return content, nil
}
