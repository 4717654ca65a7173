package schema

// Point is a position in twips.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// IsZero reports whether the point is the origin.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Rect is an axis aligned rectangle in twips. Min is the top-left corner and
// Max the bottom-right corner; both edges are inclusive.
//
// A rectangle whose corners both sit at the origin is the sentinel for
// "no cursor or selection region" and must never be treated as a real area.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// NoRect is the degenerate sentinel rectangle.
var NoRect = Rect{}

// RectXYWH builds a rectangle from a top-left corner and a size.
func RectXYWH(x, y, width, height int) Rect {
	return Rect{Min: Point{X: x, Y: y}, Max: Point{X: x + width, Y: y + height}}
}

// Empty reports whether r is the degenerate sentinel.
func (r Rect) Empty() bool {
	return r.Min.IsZero() && r.Max.IsZero()
}

// Size returns the width and height of r.
func (r Rect) Size() Point {
	return Point{X: r.Max.X - r.Min.X, Y: r.Max.Y - r.Min.Y}
}

// TopLeft returns the top-left corner.
func (r Rect) TopLeft() Point { return r.Min }

// TopRight returns the top-right corner.
func (r Rect) TopRight() Point { return Point{X: r.Max.X, Y: r.Min.Y} }

// BottomLeft returns the bottom-left corner.
func (r Rect) BottomLeft() Point { return Point{X: r.Min.X, Y: r.Max.Y} }

// BottomRight returns the bottom-right corner.
func (r Rect) BottomRight() Point { return r.Max }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Intersects reports whether r and other overlap. Touching edges count.
func (r Rect) Intersects(other Rect) bool {
	xIntersects := other.Max.X >= r.Min.X && other.Min.X <= r.Max.X
	yIntersects := other.Max.Y >= r.Min.Y && other.Min.Y <= r.Max.Y
	return xIntersects && yIntersects
}

// Quad is a selection rectangle expressed by its four corners.
type Quad struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
}

// QuadFromRect returns the corners of r.
func QuadFromRect(r Rect) Quad {
	return Quad{
		TopLeft:     r.TopLeft(),
		TopRight:    r.TopRight(),
		BottomLeft:  r.BottomLeft(),
		BottomRight: r.BottomRight(),
	}
}
