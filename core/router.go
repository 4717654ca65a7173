package core

import (
	"context"

	"pkt.systems/tilesync/internal/imagedec"
	"pkt.systems/tilesync/internal/logx"
	"pkt.systems/tilesync/internal/overlay"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/internal/tilecache"
	"pkt.systems/tilesync/schema"
)

// HandleFrame decodes one inbound frame and dispatches it.
func (e *Engine) HandleFrame(ctx context.Context, frame []byte) {
	e.Dispatch(ctx, protocol.Decode(frame))
}

// Dispatch routes a parsed message to its handler after running queued timer
// callbacks. A failing handler is logged and never stops the stream.
func (e *Engine) Dispatch(ctx context.Context, msg protocol.Message) {
	e.Flush()
	log := logx.WithKind(e.log, msg.Kind.String())
	defer func() {
		if r := recover(); r != nil {
			log.Error("router handler panic", "panic", r, "raw", msg.Raw)
		}
	}()
	log.Trace("router dispatch")
	switch msg.Kind {
	case protocol.KindUnknown:
		return
	case protocol.KindCursorVisible:
		e.applyCursor(e.overlay.SetCursorVisible(msg.Bool(), e.overlayView()))
	case protocol.KindInvalidateCursor:
		rect, ok := msg.Rect()
		if !ok {
			log.Warn("router cursor without rectangle", "raw", msg.Raw)
			return
		}
		e.applyCursor(e.overlay.SetCursorRect(rect, e.overlayView()))
	case protocol.KindTextSelectionStart:
		rect, ok := msg.Rect()
		if !ok {
			rect = schema.NoRect
		}
		e.overlay.SetSelectionStart(rect)
	case protocol.KindTextSelectionEnd:
		rect, ok := msg.Rect()
		if !ok {
			rect = schema.NoRect
		}
		e.overlay.SetSelectionEnd(rect)
	case protocol.KindTextSelection:
		e.onTextSelection(ctx, msg)
	case protocol.KindTextSelectionContent:
		e.overlay.SetContent(msg.Content())
	case protocol.KindGraphicSelection:
		rect := schema.NoRect
		if !msg.Empty() {
			if r, ok := msg.Rect(); ok {
				rect = r
			}
		}
		e.overlay.SetGraphicSelection(rect, e.view.Zoom())
	case protocol.KindInvalidateTiles:
		e.onInvalidateTiles(ctx, msg)
	case protocol.KindStateChanged:
		command, state, ok := msg.StateChange()
		if !ok {
			log.Debug("router statechanged without value", "raw", msg.Raw)
			return
		}
		e.commandStates[command] = state
		e.emit(schema.Event{Type: schema.EventCommandState, State: schema.CommandStateEvent{Command: command, State: state}})
	case protocol.KindStatus:
		e.onStatus(ctx, msg)
	case protocol.KindStatusIndicator:
		st, value, ok := msg.Indicator()
		if !ok {
			return
		}
		e.emit(e.status.ApplyIndicator(st, value))
	case protocol.KindTile:
		e.onTile(ctx, msg)
	case protocol.KindSetPart:
		e.onSetPart(msg)
	case protocol.KindSearchNotFound:
		e.emit(e.search.NotFound(msg.SearchPhrase(), e.emit))
	case protocol.KindStyles:
		styles, err := msg.Styles()
		if err != nil {
			log.Warn("router styles decode failed", "err", err)
			return
		}
		e.styles = styles
		e.emit(schema.Event{Type: schema.EventStyles, Styles: schema.StylesEvent{Styles: styles}})
	case protocol.KindError:
		e.raiseError(msg.ServerError())
	default:
		log.Warn("router unhandled kind")
	}
}

func (e *Engine) applyCursor(update overlay.CursorUpdate) {
	if update.Scroll != nil {
		e.emit(schema.Event{Type: schema.EventScrollTo, Scroll: *update.Scroll})
	}
}

func (e *Engine) onTextSelection(ctx context.Context, msg protocol.Message) {
	update := e.overlay.SetSelection(msg.Rects(), e.overlayView())
	if update.Scroll != nil {
		e.emit(schema.Event{Type: schema.EventScrollTo, Scroll: *update.Scroll})
	}
	if update.FetchContent {
		e.selectionFetch.Schedule(func() {
			e.sendRequest(ctx, protocol.GetTextSelection())
		})
	}
}

func (e *Engine) onStatus(ctx context.Context, msg protocol.Message) {
	st, ok := msg.Status()
	if !ok {
		e.log.Warn("router status without document size", "raw", msg.Raw)
		return
	}
	change := e.status.ApplyStatus(msg.Raw, st)
	if !change.Changed {
		return
	}
	e.view.SetMaxBounds(change.DocSize)
	if change.SetClientPart != nil {
		e.sendRequest(ctx, *change.SetClientPart)
	}
	for _, ev := range change.Events {
		e.emit(ev)
	}
	e.view.Refresh(e.status.CurrentPart())
	if change.PrefetchReset {
		e.tiles.ResetPrefetch(e.status.PrefetchPart())
	}
}

func (e *Engine) onSetPart(msg protocol.Message) {
	part, ok := msg.SetPart()
	if !ok {
		e.log.Warn("router setpart without part", "raw", msg.Raw)
		return
	}
	change := e.status.ApplySetPart(part)
	if change.Switched {
		logx.WithPart(e.log, part).Debug("router part switched")
		e.view.Refresh(part)
		e.overlay.ClearSelections(e.overlayView())
	}
	if change.Event != nil {
		e.emit(*change.Event)
	}
}

func (e *Engine) onInvalidateTiles(ctx context.Context, msg protocol.Message) {
	inv, ok := msg.Invalidation()
	if !ok {
		e.log.Warn("router invalidation without region", "raw", msg.Raw)
		return
	}
	part := inv.Part
	if !inv.HasPart {
		part = e.status.CurrentPart()
	}
	if e.status.DocType().IsText() {
		part = 0
	}
	zoom := e.view.Zoom()
	cursor, _, _ := e.overlay.Cursor()
	res := e.tiles.Invalidate(tilecache.InvalidateRequest{
		Region:      inv.Rect,
		Part:        part,
		Visible:     e.geom.PlaneRectToTwips(e.view.VisibleBounds(), zoom),
		Cursor:      e.geom.TwipsToGrid(cursor.TopLeft(), zoom),
		CurrentPart: e.status.CurrentPart(),
	})
	for _, key := range res.Requests {
		e.requestTile(ctx, key)
	}
	if res.PartRendered {
		e.emit(schema.Event{Type: schema.EventPartRendered, Part: schema.PartEvent{Part: part, DocType: e.status.DocType()}})
	}
}

func (e *Engine) onTile(ctx context.Context, msg protocol.Message) {
	header := msg.Tile()
	img, err := imagedec.Inspect(msg.Payload)
	if err != nil {
		e.log.Debug("router tile payload not recognized", "err", err, "bytes", len(msg.Payload))
	}
	if header.HasID {
		e.emit(schema.Event{Type: schema.EventTilePreview, Preview: schema.TilePreviewEvent{
			ID:      header.ID,
			Width:   header.Width,
			Height:  header.Height,
			Part:    header.Part,
			DocType: e.status.DocType(),
			Image:   img,
		}})
		return
	}
	zoom := header.Zoom
	if !header.HasZoom {
		zoom = e.view.Zoom()
	}
	key := schema.TileKey{X: header.X, Y: header.Y, Zoom: zoom, Part: header.Part}
	res := e.tiles.Receive(tilecache.Response{Key: key, Image: img, PreFetch: header.PreFetch})
	if res.AllLoaded {
		e.emit(schema.Event{Type: schema.EventTilesLoaded})
	}
}

func (e *Engine) requestTile(ctx context.Context, key schema.TileKey) {
	e.sendRequest(ctx, protocol.TileRequest(key, e.geom.TileSize, e.geom.TileFootprint(key)))
}
