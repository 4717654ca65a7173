// Package overlay owns the cursor, text selection and graphic selection state
// drawn on top of the tiled view, together with the selection handles.
package overlay

import (
	"context"
	"math"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/schema"
)

// View is the viewport snapshot overlay decisions are made against.
type View struct {
	Zoom int
	// Visible is the visible extent in plane coordinates.
	Visible coords.FRect
	// Size is the viewport size in pixels.
	Size       coords.FPoint
	Permission schema.Permission
}

// Marker is a drawn overlay element: its plane position and pixel size.
type Marker struct {
	Position coords.FPoint
	Size     coords.FPoint
}

// Manager holds all overlay state. It is not safe for concurrent use.
type Manager struct {
	geom coords.Transform
	log  pslog.Logger

	cursor         schema.Rect
	cursorVisible  bool
	overlayVisible bool
	cursorMarker   *Marker

	startRect schema.Rect
	endRect   schema.Rect
	selection []schema.Rect
	shapes    []Shape
	handles   [2]HandleMarker
	content   string

	graphic        schema.Rect
	graphicOverlay *GraphicOverlay
}

// New constructs a Manager with the cursor logically visible and nothing selected.
func New(geom coords.Transform, logger pslog.Logger) *Manager {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Manager{
		geom:          geom,
		log:           logger,
		cursorVisible: true,
	}
}

// CursorUpdate is the outcome of re-evaluating the cursor.
type CursorUpdate struct {
	// Marker is the drawn cursor, nil when the cursor is hidden.
	Marker *Marker
	// Scroll is set when the cursor lies outside the visible extent.
	Scroll *schema.ScrollEvent
}

// SetCursorVisible applies a cursorvisible message.
func (m *Manager) SetCursorVisible(visible bool, view View) CursorUpdate {
	m.cursorVisible = visible
	m.overlayVisible = true
	return m.updateCursor(view, true)
}

// SetCursorRect applies an invalidatecursor message.
func (m *Manager) SetCursorRect(rect schema.Rect, view View) CursorUpdate {
	m.cursor = rect
	m.overlayVisible = true
	return m.updateCursor(view, true)
}

// RefreshCursor redraws the cursor after a zoom or permission change. It
// never scrolls.
func (m *Manager) RefreshCursor(view View) CursorUpdate {
	return m.updateCursor(view, false)
}

// Cursor returns the cursor rectangle and its logical and overlay visibility.
func (m *Manager) Cursor() (rect schema.Rect, visible, overlayVisible bool) {
	return m.cursor, m.cursorVisible, m.overlayVisible
}

// CursorMarker returns the drawn cursor, if any.
func (m *Manager) CursorMarker() (Marker, bool) {
	if m.cursorMarker == nil {
		return Marker{}, false
	}
	return *m.cursorMarker, true
}

func (m *Manager) updateCursor(view View, mayScroll bool) CursorUpdate {
	update := CursorUpdate{}
	pos := m.geom.TwipsToPlane(m.cursor.TopLeft(), view.Zoom)
	if mayScroll && m.cursorVisible && !m.cursor.Empty() && !view.Visible.Contains(pos) {
		scroll := m.scrollTarget(pos, view)
		update.Scroll = &scroll
	}
	if view.Permission == schema.PermissionEdit && m.cursorVisible && m.overlayVisible && !m.cursor.Empty() {
		size := m.geom.TwipsToPixel(m.cursor.Size(), view.Zoom)
		m.cursorMarker = &Marker{Position: pos, Size: size}
		marker := *m.cursorMarker
		update.Marker = &marker
		m.log.Trace("overlay cursor drawn", "x", m.cursor.Min.X, "y", m.cursor.Min.Y)
		return update
	}
	if m.cursorMarker != nil {
		m.cursorMarker = nil
		m.overlayVisible = false
		m.log.Trace("overlay cursor removed")
	}
	return update
}

// scrollTarget centers pos in the viewport, clamped to non-negative pixels.
func (m *Manager) scrollTarget(pos coords.FPoint, view View) schema.ScrollEvent {
	center := m.geom.PlaneToPixel(pos, view.Zoom).Sub(view.Size.Scale(0.5))
	return schema.ScrollEvent{
		X: int(math.Round(math.Max(center.X, 0))),
		Y: int(math.Round(math.Max(center.Y, 0))),
	}
}
