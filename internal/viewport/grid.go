// Package viewport is a headless tile viewport. It tracks a pixel window over
// the document, derives the grid cells it covers, and reports cells entering
// and leaving the window to an observer.
package viewport

import (
	"context"
	"math"
	"sort"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/schema"
)

// Observer receives grid cell churn. The engine implements it.
type Observer interface {
	TileEntered(ctx context.Context, key schema.TileKey)
	TileLeft(ctx context.Context, key schema.TileKey)
	ZoomChanged(ctx context.Context)
}

// Options sizes a Grid.
type Options struct {
	Width   int
	Height  int
	Zoom    int
	MinZoom int
	MaxZoom int
}

// Grid is not safe for concurrent use; drive it from the engine goroutine.
type Grid struct {
	geom    coords.Transform
	log     pslog.Logger
	width   int
	height  int
	zoom    int
	minZoom int
	maxZoom int

	origin    coords.FPoint
	maxBounds schema.Rect
	part      int
	cells     map[schema.TileKey]struct{}
	focused   int

	ctx      context.Context
	observer Observer
}

// New constructs a Grid showing the top-left corner of the document.
func New(geom coords.Transform, opts Options, logger pslog.Logger) *Grid {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = opts.MinZoom
	}
	g := &Grid{
		geom:      geom,
		log:       logger,
		width:     opts.Width,
		height:    opts.Height,
		minZoom:   opts.MinZoom,
		maxZoom:   opts.MaxZoom,
		maxBounds: schema.NoRect,
		cells:     make(map[schema.TileKey]struct{}),
		ctx:       context.Background(),
	}
	g.zoom = g.clampZoom(opts.Zoom)
	return g
}

// Attach sets the observer notified of cell churn.
func (g *Grid) Attach(ctx context.Context, observer Observer) {
	if ctx == nil {
		ctx = context.Background()
	}
	g.ctx = ctx
	g.observer = observer
}

// Zoom implements core.Viewport.
func (g *Grid) Zoom() int {
	return g.zoom
}

// VisibleBounds implements core.Viewport.
func (g *Grid) VisibleBounds() coords.FRect {
	far := coords.FPoint{X: g.origin.X + float64(g.width), Y: g.origin.Y + float64(g.height)}
	return coords.FRect{
		Min: g.geom.PixelToPlane(g.origin, g.zoom),
		Max: g.geom.PixelToPlane(far, g.zoom),
	}
}

// Size implements core.Viewport.
func (g *Grid) Size() coords.FPoint {
	return coords.FPoint{X: float64(g.width), Y: float64(g.height)}
}

// SetMaxBounds implements core.Viewport. Cells outside the document are
// never entered; the cells themselves change on the next Refresh or scroll.
func (g *Grid) SetMaxBounds(doc schema.Rect) {
	g.maxBounds = doc
	g.origin = g.clampOrigin(g.origin)
}

// Refresh implements core.Viewport. Every cell leaves and re-enters at part.
func (g *Grid) Refresh(part int) {
	g.log.Debug("viewport refresh", "part", part, "cells", len(g.cells))
	g.part = part
	g.leaveAll()
	g.update()
}

// FocusInput implements core.Viewport.
func (g *Grid) FocusInput() {
	g.focused++
}

// Focused returns how often input focus was requested.
func (g *Grid) Focused() int {
	return g.focused
}

// Origin returns the pixel offset of the top-left corner.
func (g *Grid) Origin() coords.FPoint {
	return g.origin
}

// Part returns the displayed part.
func (g *Grid) Part() int {
	return g.part
}

// ScrollTo moves the top-left corner to a pixel offset.
func (g *Grid) ScrollTo(ev schema.ScrollEvent) {
	g.origin = g.clampOrigin(coords.FPoint{X: float64(ev.X), Y: float64(ev.Y)})
	g.log.Trace("viewport scrolled", "x", g.origin.X, "y", g.origin.Y)
	g.update()
}

// ScrollBy moves the window by a pixel delta.
func (g *Grid) ScrollBy(dx, dy int) {
	g.ScrollTo(schema.ScrollEvent{X: int(g.origin.X) + dx, Y: int(g.origin.Y) + dy})
}

// SetZoom switches zoom keeping the window centre fixed. All cells are
// replaced since tile keys carry the zoom.
func (g *Grid) SetZoom(zoom int) bool {
	zoom = g.clampZoom(zoom)
	if zoom == g.zoom {
		return false
	}
	factor := math.Ldexp(1, zoom-g.zoom)
	centre := coords.FPoint{X: g.origin.X + float64(g.width)/2, Y: g.origin.Y + float64(g.height)/2}.Scale(factor)
	g.leaveAll()
	g.zoom = zoom
	g.origin = g.clampOrigin(coords.FPoint{X: centre.X - float64(g.width)/2, Y: centre.Y - float64(g.height)/2})
	g.log.Debug("viewport zoom", "zoom", zoom)
	if g.observer != nil {
		g.observer.ZoomChanged(g.ctx)
	}
	g.update()
	return true
}

// Cells returns the active cells in row-major order.
func (g *Grid) Cells() []schema.TileKey {
	keys := make([]schema.TileKey, 0, len(g.cells))
	for key := range g.cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// CellRect returns the pixel rectangle of key relative to the window origin.
func (g *Grid) CellRect(key schema.TileKey) coords.FRect {
	size := float64(g.geom.TileSize)
	min := coords.FPoint{X: float64(key.X)*size - g.origin.X, Y: float64(key.Y)*size - g.origin.Y}
	return coords.FRect{Min: min, Max: coords.FPoint{X: min.X + size, Y: min.Y + size}}
}

func (g *Grid) update() {
	want := g.visibleCells()
	for key := range g.cells {
		if _, ok := want[key]; ok {
			continue
		}
		delete(g.cells, key)
		if g.observer != nil {
			g.observer.TileLeft(g.ctx, key)
		}
	}
	entered := make([]schema.TileKey, 0, len(want))
	for key := range want {
		if _, ok := g.cells[key]; ok {
			continue
		}
		g.cells[key] = struct{}{}
		entered = append(entered, key)
	}
	sort.Slice(entered, func(i, j int) bool {
		if entered[i].Y != entered[j].Y {
			return entered[i].Y < entered[j].Y
		}
		return entered[i].X < entered[j].X
	})
	for _, key := range entered {
		if g.observer != nil {
			g.observer.TileEntered(g.ctx, key)
		}
	}
}

func (g *Grid) leaveAll() {
	for _, key := range g.Cells() {
		delete(g.cells, key)
		if g.observer != nil {
			g.observer.TileLeft(g.ctx, key)
		}
	}
}

func (g *Grid) visibleCells() map[schema.TileKey]struct{} {
	out := make(map[schema.TileKey]struct{})
	if g.maxBounds.Empty() || g.width <= 0 || g.height <= 0 {
		return out
	}
	size := float64(g.geom.TileSize)
	minX := int(math.Floor(g.origin.X / size))
	minY := int(math.Floor(g.origin.Y / size))
	maxX := int(math.Floor((g.origin.X + float64(g.width) - 1) / size))
	maxY := int(math.Floor((g.origin.Y + float64(g.height) - 1) / size))
	docMaxX, docMaxY := g.geom.TwipsToTile(g.maxBounds.Max.Sub(schema.Point{X: 1, Y: 1}), g.zoom)
	for y := max(minY, 0); y <= min(maxY, docMaxY); y++ {
		for x := max(minX, 0); x <= min(maxX, docMaxX); x++ {
			out[schema.TileKey{X: x, Y: y, Zoom: g.zoom, Part: g.part}] = struct{}{}
		}
	}
	return out
}

func (g *Grid) clampOrigin(p coords.FPoint) coords.FPoint {
	if !g.maxBounds.Empty() {
		doc := g.geom.TwipsToPixel(g.maxBounds.Max, g.zoom)
		p.X = math.Min(p.X, math.Max(doc.X-float64(g.width), 0))
		p.Y = math.Min(p.Y, math.Max(doc.Y-float64(g.height), 0))
	}
	p.X = math.Max(p.X, 0)
	p.Y = math.Max(p.Y, 0)
	return p
}

func (g *Grid) clampZoom(zoom int) int {
	if g.maxZoom == 0 && g.minZoom == 0 {
		return zoom
	}
	return min(max(zoom, g.minZoom), g.maxZoom)
}
