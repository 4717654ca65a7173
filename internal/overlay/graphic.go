package overlay

import (
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/schema"
)

// GraphicOverlay is the editable, unfilled rectangle around a selected object.
type GraphicOverlay struct {
	Bounds  coords.FRect
	Fill    bool
	Editing bool
}

// SetGraphicSelection applies a graphicselection message. NoRect removes the
// overlay and clears its drag flag.
func (m *Manager) SetGraphicSelection(rect schema.Rect, zoom int) (GraphicOverlay, bool) {
	m.graphic = rect
	if rect.Empty() {
		if m.graphicOverlay != nil {
			m.graphicOverlay = nil
			m.log.Debug("overlay graphic selection removed")
		}
		return GraphicOverlay{}, false
	}
	m.graphicOverlay = &GraphicOverlay{Bounds: m.geom.RectToPlane(rect, zoom)}
	m.log.Debug("overlay graphic selection shown", "x", rect.Min.X, "y", rect.Min.Y)
	return *m.graphicOverlay, true
}

// Graphic returns the graphic selection overlay, if shown.
func (m *Manager) Graphic() (GraphicOverlay, bool) {
	if m.graphicOverlay == nil {
		return GraphicOverlay{}, false
	}
	return *m.graphicOverlay, true
}

// EditPhase is a step of a graphic resize gesture.
type EditPhase int

const (
	EditStart EditPhase = iota
	EditEnd
)

// EditGraphic converts the active resize handle position to twips and returns
// the matching select graphic intent. ok is false without an overlay.
func (m *Manager) EditGraphic(phase EditPhase, pos coords.FPoint, zoom int) (protocol.Request, bool) {
	if m.graphicOverlay == nil {
		return protocol.Request{}, false
	}
	twips := m.geom.PlaneToTwips(pos, zoom)
	switch phase {
	case EditStart:
		m.graphicOverlay.Editing = true
		return protocol.SelectGraphic("start", twips), true
	case EditEnd:
		m.graphicOverlay.Editing = false
		return protocol.SelectGraphic("end", twips), true
	}
	return protocol.Request{}, false
}
