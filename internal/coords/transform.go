// Package coords converts between document twips, viewport pixels and the
// viewport's planar coordinate system.
package coords

import (
	"math"

	"pkt.systems/tilesync/schema"
)

// FPoint is a position in pixel or plane space.
type FPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - other.
func (p FPoint) Sub(other FPoint) FPoint {
	return FPoint{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns p scaled by factor.
func (p FPoint) Scale(factor float64) FPoint {
	return FPoint{X: p.X * factor, Y: p.Y * factor}
}

// Distance returns the Euclidean distance to other.
func (p FPoint) Distance(other FPoint) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// FRect is an axis aligned rectangle in pixel or plane space, edges inclusive.
type FRect struct {
	Min FPoint `json:"min"`
	Max FPoint `json:"max"`
}

// Contains reports whether p lies inside r.
func (r FRect) Contains(p FPoint) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Size returns the extent of r.
func (r FRect) Size() FPoint {
	return r.Max.Sub(r.Min)
}

// Projection is the viewport's own pixel to plane mapping.
type Projection interface {
	PixelToPlane(p FPoint, zoom int) FPoint
	PlaneToPixel(p FPoint, zoom int) FPoint
}

// FlatProjection maps pixels at zoom z to plane units of pixels at zoom 0.
type FlatProjection struct{}

// PixelToPlane implements Projection.
func (FlatProjection) PixelToPlane(p FPoint, zoom int) FPoint {
	return p.Scale(math.Ldexp(1, -zoom))
}

// PlaneToPixel implements Projection.
func (FlatProjection) PlaneToPixel(p FPoint, zoom int) FPoint {
	return p.Scale(math.Ldexp(1, zoom))
}

// Transform holds the fixed tile geometry. It has no mutable state.
type Transform struct {
	TileSize      int
	TileTwips     int
	ReferenceZoom int
	Projection    Projection
}

// New returns a Transform, substituting defaults for non-positive values.
func New(tileSize, tileTwips, referenceZoom int, projection Projection) Transform {
	if tileSize <= 0 {
		tileSize = schema.DefaultTileSize
	}
	if tileTwips <= 0 {
		tileTwips = schema.DefaultTileTwips
	}
	if projection == nil {
		projection = FlatProjection{}
	}
	return Transform{
		TileSize:      tileSize,
		TileTwips:     tileTwips,
		ReferenceZoom: referenceZoom,
		Projection:    projection,
	}
}

// Default returns the transform for 256px tiles of 3840 twips at zoom 10.
func Default() Transform {
	return New(schema.DefaultTileSize, schema.DefaultTileTwips, schema.DefaultReferenceZoom, nil)
}

// Scale is the magnification of zoom relative to the reference zoom.
func (t Transform) Scale(zoom int) float64 {
	return math.Ldexp(1, zoom-t.ReferenceZoom)
}

// TwipsPerPixel decreases as zoom increases.
func (t Transform) TwipsPerPixel(zoom int) float64 {
	return float64(t.TileTwips) / float64(t.TileSize) / t.Scale(zoom)
}

// TileTwipsAt returns the twips covered by one tile edge at zoom.
func (t Transform) TileTwipsAt(zoom int) float64 {
	return float64(t.TileSize) * t.TwipsPerPixel(zoom)
}

// TwipsToPixel converts a twips point to pixels at zoom.
func (t Transform) TwipsToPixel(p schema.Point, zoom int) FPoint {
	tpp := t.TwipsPerPixel(zoom)
	return FPoint{X: float64(p.X) / tpp, Y: float64(p.Y) / tpp}
}

// PixelToTwips converts pixels at zoom to the nearest twip.
func (t Transform) PixelToTwips(p FPoint, zoom int) schema.Point {
	tpp := t.TwipsPerPixel(zoom)
	return schema.Point{X: int(math.Round(p.X * tpp)), Y: int(math.Round(p.Y * tpp))}
}

// TwipsToPlane converts twips to the viewport plane through pixel space.
func (t Transform) TwipsToPlane(p schema.Point, zoom int) FPoint {
	return t.projection().PixelToPlane(t.TwipsToPixel(p, zoom), zoom)
}

// PlaneToTwips converts a plane position back to twips.
func (t Transform) PlaneToTwips(p FPoint, zoom int) schema.Point {
	return t.PixelToTwips(t.projection().PlaneToPixel(p, zoom), zoom)
}

// PlaneToPixel projects a plane position to pixels at zoom.
func (t Transform) PlaneToPixel(p FPoint, zoom int) FPoint {
	return t.projection().PlaneToPixel(p, zoom)
}

// PixelToPlane projects a pixel position at zoom onto the plane.
func (t Transform) PixelToPlane(p FPoint, zoom int) FPoint {
	return t.projection().PixelToPlane(p, zoom)
}

// RectToPlane converts a twips rectangle to plane space.
func (t Transform) RectToPlane(r schema.Rect, zoom int) FRect {
	return FRect{Min: t.TwipsToPlane(r.Min, zoom), Max: t.TwipsToPlane(r.Max, zoom)}
}

// PlaneRectToTwips converts a plane rectangle to twips.
func (t Transform) PlaneRectToTwips(r FRect, zoom int) schema.Rect {
	return schema.Rect{Min: t.PlaneToTwips(r.Min, zoom), Max: t.PlaneToTwips(r.Max, zoom)}
}

// TileFootprint returns the twips rectangle covered by the tile at key.
func (t Transform) TileFootprint(key schema.TileKey) schema.Rect {
	edge := t.TileTwipsAt(key.Zoom)
	min := schema.Point{X: int(math.Round(float64(key.X) * edge)), Y: int(math.Round(float64(key.Y) * edge))}
	size := int(math.Round(edge))
	return schema.Rect{Min: min, Max: min.Add(schema.Point{X: size, Y: size})}
}

// TwipsToGrid converts a twips point to fractional tile grid coordinates.
func (t Transform) TwipsToGrid(p schema.Point, zoom int) FPoint {
	return t.TwipsToPixel(p, zoom).Scale(1 / float64(t.TileSize))
}

// TwipsToTile returns the grid cell holding the twips position at zoom.
func (t Transform) TwipsToTile(p schema.Point, zoom int) (int, int) {
	g := t.TwipsToGrid(p, zoom)
	return int(math.Floor(g.X)), int(math.Floor(g.Y))
}

// GridRange returns the inclusive range of grid cells touched by a twips rectangle.
func (t Transform) GridRange(r schema.Rect, zoom int) (minX, minY, maxX, maxY int) {
	minX, minY = t.TwipsToTile(r.Min, zoom)
	maxX, maxY = t.TwipsToTile(r.Max, zoom)
	return minX, minY, maxX, maxY
}

// GridDistance is the Euclidean distance between a tile cell and a grid position.
// It is only meaningful for ordering.
func GridDistance(x, y int, to FPoint) float64 {
	return FPoint{X: float64(x), Y: float64(y)}.Distance(to)
}

func (t Transform) projection() Projection {
	if t.Projection == nil {
		return FlatProjection{}
	}
	return t.Projection
}
