package overlay

import (
	"fmt"
	"math"

	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/schema"
)

// Style is the fixed rendering of selection shapes.
type Style struct {
	FillColor   string
	FillOpacity float64
	Weight      int
	Opacity     float64
	Interactive bool
}

// SelectionStyle is applied to every text selection shape.
var SelectionStyle = Style{
	FillColor:   "#43ACE8",
	FillOpacity: 0.25,
	Weight:      2,
	Opacity:     0.25,
}

// Shape is one rendered selection rectangle.
type Shape struct {
	Quad  schema.Quad
	Plane coords.FRect
	Style Style
}

// SelectionUpdate is the outcome of a textselection message.
type SelectionUpdate struct {
	Shapes []Shape
	// Centroid is the mean of the rectangle centers in twips.
	Centroid coords.FPoint
	Scroll   *schema.ScrollEvent
	// FetchContent asks the caller to (re)schedule the debounced content fetch.
	FetchContent bool
}

// SetSelection rebuilds the text selection from its rectangles. An empty list
// clears every selection overlay and both handle rectangles.
func (m *Manager) SetSelection(rects []schema.Rect, view View) SelectionUpdate {
	m.clearShapes()
	update := SelectionUpdate{}
	if len(rects) == 0 {
		m.refreshHandles(view)
		m.log.Debug("overlay selection cleared")
		return update
	}
	var sum coords.FPoint
	for _, r := range rects {
		size := r.Size()
		sum.X += float64(r.Min.X) + float64(size.X)/2
		sum.Y += float64(r.Min.Y) + float64(size.Y)/2
		m.shapes = append(m.shapes, Shape{
			Quad:  schema.QuadFromRect(r),
			Plane: m.geom.RectToPlane(r, view.Zoom),
			Style: SelectionStyle,
		})
	}
	m.selection = append([]schema.Rect(nil), rects...)
	update.Centroid = sum.Scale(1 / float64(len(rects)))
	center := schema.Point{X: int(math.Round(update.Centroid.X)), Y: int(math.Round(update.Centroid.Y))}
	pos := m.geom.TwipsToPlane(center, view.Zoom)
	if !view.Visible.Contains(pos) {
		scroll := m.scrollTarget(pos, view)
		update.Scroll = &scroll
	}
	update.Shapes = m.Shapes()
	update.FetchContent = true
	m.refreshHandles(view)
	m.log.Debug("overlay selection updated", "rects", len(rects), "centroid_x", update.Centroid.X, "centroid_y", update.Centroid.Y)
	return update
}

// ClearSelections removes every selection shape and hides the handles.
func (m *Manager) ClearSelections(view View) {
	m.clearShapes()
	m.refreshHandles(view)
}

func (m *Manager) clearShapes() {
	m.shapes = nil
	m.selection = nil
}

// Shapes returns the rendered selection shapes.
func (m *Manager) Shapes() []Shape {
	return append([]Shape(nil), m.shapes...)
}

// Selection returns the selection rectangles in twips.
func (m *Manager) Selection() []schema.Rect {
	return append([]schema.Rect(nil), m.selection...)
}

// SetSelectionStart records the start handle rectangle; NoRect resets it.
func (m *Manager) SetSelectionStart(rect schema.Rect) {
	m.startRect = rect
}

// SetSelectionEnd records the end handle rectangle; NoRect resets it.
func (m *Manager) SetSelectionEnd(rect schema.Rect) {
	m.endRect = rect
}

// SelectionBounds returns the start and end handle rectangles.
func (m *Manager) SelectionBounds() (start, end schema.Rect) {
	return m.startRect, m.endRect
}

// SetContent caches the plain text of the selection.
func (m *Manager) SetContent(content string) {
	m.content = content
}

// Content returns the cached selection text.
func (m *Manager) Content() string {
	return m.content
}

// Copy returns the cached selection text or ErrNoSelectionContent.
func (m *Manager) Copy() (string, error) {
	if m.content == "" {
		return "", schema.ErrNoSelectionContent
	}
	return m.content, nil
}

// Handle names one of the two text selection handles.
type Handle int

const (
	HandleStart Handle = iota
	HandleEnd
)

func (h Handle) String() string {
	switch h {
	case HandleStart:
		return "start"
	case HandleEnd:
		return "end"
	}
	return fmt.Sprintf("handle(%d)", int(h))
}

// HandleState is the drag state of a handle.
type HandleState int

const (
	HandleIdle HandleState = iota
	HandleDragging
)

// HandleMarker is a handle's displayed position and drag state.
type HandleMarker struct {
	Visible  bool
	Position coords.FPoint
	State    HandleState
}

// Handles returns both handle markers, start first.
func (m *Manager) Handles() [2]HandleMarker {
	return m.handles
}

// refreshHandles moves the handles to the selection corners unless they are
// being dragged, or hides both when nothing is selected.
func (m *Manager) refreshHandles(view View) {
	if len(m.shapes) == 0 {
		m.startRect = schema.NoRect
		m.endRect = schema.NoRect
		m.handles = [2]HandleMarker{}
		return
	}
	start := &m.handles[HandleStart]
	if !m.startRect.Empty() && start.State != HandleDragging {
		start.Position = m.geom.TwipsToPlane(m.startRect.BottomLeft(), view.Zoom)
		start.Visible = true
	}
	end := &m.handles[HandleEnd]
	if !m.endRect.Empty() && end.State != HandleDragging {
		end.Position = m.geom.TwipsToPlane(m.endRect.BottomRight(), view.Zoom)
		end.Visible = true
	}
}

// DragPhase is a step of a handle drag gesture.
type DragPhase int

const (
	DragStart DragPhase = iota
	DragMove
	DragEnd
)

// DragResult is the effect of one drag step.
type DragResult struct {
	// Request is the select text intent, absent on drag start.
	Request *protocol.Request
	// Focus asks the caller to return input focus to the text entry surface.
	Focus bool
}

// DragHandle advances a handle's state machine. pos is the handle's plane
// position at the current zoom.
func (m *Manager) DragHandle(h Handle, phase DragPhase, pos coords.FPoint, zoom int) (DragResult, error) {
	if h != HandleStart && h != HandleEnd {
		return DragResult{}, fmt.Errorf("%w: %s", schema.ErrUnknownHandle, h)
	}
	marker := &m.handles[h]
	marker.Position = pos
	res := DragResult{}
	switch phase {
	case DragStart:
		marker.State = HandleDragging
		return res, nil
	case DragMove:
		marker.State = HandleDragging
	case DragEnd:
		marker.State = HandleIdle
		res.Focus = true
	default:
		return DragResult{}, fmt.Errorf("unknown drag phase %d", int(phase))
	}
	twips := m.geom.PlaneToTwips(pos, zoom)
	req := protocol.SelectText(h.String(), twips)
	res.Request = &req
	return res, nil
}
