package overlay

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/schema"
)

func testView(perm schema.Permission) View {
	geom := coords.Default()
	return View{
		Zoom:       10,
		Visible:    geom.RectToPlane(schema.RectXYWH(0, 0, 15360, 15360), 10),
		Size:       coords.FPoint{X: 1024, Y: 1024},
		Permission: perm,
	}
}

func TestCursorDrawnWhenVisibleInEditMode(t *testing.T) {
	m := New(coords.Default(), nil)
	update := m.SetCursorRect(schema.RectXYWH(100, 100, 50, 20), testView(schema.PermissionEdit))
	if update.Scroll != nil {
		t.Fatalf("cursor inside the view must not scroll, got %+v", update.Scroll)
	}
	if update.Marker == nil {
		t.Fatalf("expected cursor marker")
	}
	want := coords.Default().TwipsToPixel(schema.Point{X: 50, Y: 20}, 10)
	if diff := cmp.Diff(want, update.Marker.Size); diff != "" {
		t.Fatalf("marker size mismatch (-want +got):\n%s", diff)
	}
	if _, ok := m.CursorMarker(); !ok {
		t.Fatalf("expected marker to be retained")
	}
}

func TestCursorHiddenOutsideEditMode(t *testing.T) {
	m := New(coords.Default(), nil)
	m.SetCursorRect(schema.RectXYWH(100, 100, 50, 20), testView(schema.PermissionEdit))
	update := m.RefreshCursor(testView(schema.PermissionView))
	if update.Marker != nil {
		t.Fatalf("cursor drawn in view mode")
	}
	_, visible, overlayVisible := m.Cursor()
	if !visible || overlayVisible {
		t.Fatalf("expected logical visibility kept and overlay cleared, got %v/%v", visible, overlayVisible)
	}
}

func TestCursorSentinelNeverDrawn(t *testing.T) {
	m := New(coords.Default(), nil)
	update := m.SetCursorRect(schema.NoRect, testView(schema.PermissionEdit))
	if update.Marker != nil || update.Scroll != nil {
		t.Fatalf("sentinel cursor must be treated as absent: %+v", update)
	}
}

func TestCursorScrollsWhenOffscreen(t *testing.T) {
	m := New(coords.Default(), nil)
	update := m.SetCursorRect(schema.RectXYWH(30000, 30000, 10, 10), testView(schema.PermissionEdit))
	if update.Scroll == nil {
		t.Fatalf("expected scroll")
	}
	if diff := cmp.Diff(schema.ScrollEvent{X: 1488, Y: 1488}, *update.Scroll); diff != "" {
		t.Fatalf("scroll mismatch (-want +got):\n%s", diff)
	}

	update = m.SetCursorRect(schema.RectXYWH(150, 30000, 10, 10), testView(schema.PermissionEdit))
	if update.Scroll == nil || update.Scroll.X != 0 || update.Scroll.Y != 1488 {
		t.Fatalf("expected clamped scroll, got %+v", update.Scroll)
	}

	if update := m.RefreshCursor(testView(schema.PermissionEdit)); update.Scroll != nil {
		t.Fatalf("redraws must not scroll")
	}
}

func TestCursorInvisibleDoesNotScroll(t *testing.T) {
	m := New(coords.Default(), nil)
	m.SetCursorRect(schema.RectXYWH(30000, 30000, 10, 10), testView(schema.PermissionEdit))
	update := m.SetCursorVisible(false, testView(schema.PermissionEdit))
	if update.Scroll != nil || update.Marker != nil {
		t.Fatalf("hidden cursor must neither scroll nor draw: %+v", update)
	}
}

func TestSelectionCentroidAndShapes(t *testing.T) {
	m := New(coords.Default(), nil)
	view := testView(schema.PermissionEdit)
	update := m.SetSelection([]schema.Rect{
		schema.RectXYWH(0, 0, 100, 50),
		schema.RectXYWH(0, 100, 100, 50),
	}, view)
	if diff := cmp.Diff(coords.FPoint{X: 50, Y: 75}, update.Centroid); diff != "" {
		t.Fatalf("centroid mismatch (-want +got):\n%s", diff)
	}
	if len(update.Shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(update.Shapes))
	}
	if update.Shapes[1].Quad.BottomRight != (schema.Point{X: 100, Y: 150}) {
		t.Fatalf("unexpected quad %+v", update.Shapes[1].Quad)
	}
	if update.Shapes[0].Style != SelectionStyle || update.Shapes[0].Style.Interactive {
		t.Fatalf("unexpected style %+v", update.Shapes[0].Style)
	}
	if !update.FetchContent {
		t.Fatalf("expected content fetch")
	}
	if update.Scroll != nil {
		t.Fatalf("visible selection must not scroll")
	}
}

func TestSelectionOffscreenScrolls(t *testing.T) {
	m := New(coords.Default(), nil)
	update := m.SetSelection([]schema.Rect{schema.RectXYWH(29990, 29990, 20, 20)}, testView(schema.PermissionEdit))
	if update.Scroll == nil || *update.Scroll != (schema.ScrollEvent{X: 1488, Y: 1488}) {
		t.Fatalf("expected centered scroll, got %+v", update.Scroll)
	}
}

func TestHandlesFollowSelectionUnlessDragged(t *testing.T) {
	geom := coords.Default()
	m := New(geom, nil)
	view := testView(schema.PermissionEdit)
	m.SetSelectionStart(schema.RectXYWH(0, 0, 10, 50))
	m.SetSelectionEnd(schema.RectXYWH(90, 100, 10, 50))
	m.SetSelection([]schema.Rect{schema.RectXYWH(0, 0, 100, 150)}, view)

	handles := m.Handles()
	if !handles[HandleStart].Visible || !handles[HandleEnd].Visible {
		t.Fatalf("expected both handles visible: %+v", handles)
	}
	if diff := cmp.Diff(geom.TwipsToPlane(schema.Point{X: 0, Y: 50}, 10), handles[HandleStart].Position); diff != "" {
		t.Fatalf("start handle mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(geom.TwipsToPlane(schema.Point{X: 100, Y: 150}, 10), handles[HandleEnd].Position); diff != "" {
		t.Fatalf("end handle mismatch (-want +got):\n%s", diff)
	}

	dragPos := geom.TwipsToPlane(schema.Point{X: 300, Y: 450}, 10)
	if res, err := m.DragHandle(HandleStart, DragStart, dragPos, 10); err != nil || res.Request != nil {
		t.Fatalf("drag start should only change state: %+v, %v", res, err)
	}
	m.SetSelectionStart(schema.RectXYWH(1000, 1000, 10, 50))
	m.SetSelection([]schema.Rect{schema.RectXYWH(0, 0, 100, 150)}, view)
	if got := m.Handles()[HandleStart]; got.Position != dragPos || got.State != HandleDragging {
		t.Fatalf("dragged handle was repositioned: %+v", got)
	}

	res, err := m.DragHandle(HandleStart, DragMove, dragPos, 10)
	if err != nil {
		t.Fatalf("drag move: %v", err)
	}
	if res.Request == nil || res.Request.Text != "selecttext type=start x=300 y=450" || res.Focus {
		t.Fatalf("unexpected drag move result %+v", res)
	}
	res, err = m.DragHandle(HandleStart, DragEnd, dragPos, 10)
	if err != nil {
		t.Fatalf("drag end: %v", err)
	}
	if res.Request == nil || !res.Focus {
		t.Fatalf("drag end must emit the intent and return focus: %+v", res)
	}
	if m.Handles()[HandleStart].State != HandleIdle {
		t.Fatalf("expected idle after drag end")
	}
}

func TestEmptySelectionResetsHandles(t *testing.T) {
	m := New(coords.Default(), nil)
	view := testView(schema.PermissionEdit)
	m.SetSelectionStart(schema.RectXYWH(0, 0, 10, 50))
	m.SetSelectionEnd(schema.RectXYWH(90, 100, 10, 50))
	m.SetSelection([]schema.Rect{schema.RectXYWH(0, 0, 100, 150)}, view)
	m.DragHandle(HandleEnd, DragMove, coords.FPoint{}, 10)

	update := m.SetSelection(nil, view)
	if update.FetchContent || len(update.Shapes) != 0 {
		t.Fatalf("empty selection must not fetch content: %+v", update)
	}
	start, end := m.SelectionBounds()
	if !start.Empty() || !end.Empty() {
		t.Fatalf("expected sentinel handle rects, got %+v %+v", start, end)
	}
	if diff := cmp.Diff([2]HandleMarker{}, m.Handles()); diff != "" {
		t.Fatalf("handles not reset (-want +got):\n%s", diff)
	}
}

func TestDragUnknownHandle(t *testing.T) {
	m := New(coords.Default(), nil)
	if _, err := m.DragHandle(Handle(7), DragMove, coords.FPoint{}, 10); !errors.Is(err, schema.ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
}

func TestCopyRequiresContent(t *testing.T) {
	m := New(coords.Default(), nil)
	if _, err := m.Copy(); !errors.Is(err, schema.ErrNoSelectionContent) {
		t.Fatalf("expected ErrNoSelectionContent, got %v", err)
	}
	m.SetContent("hello")
	got, err := m.Copy()
	if err != nil || got != "hello" {
		t.Fatalf("unexpected copy result %q, %v", got, err)
	}
}

func TestGraphicSelectionEdit(t *testing.T) {
	geom := coords.Default()
	m := New(geom, nil)
	overlay, ok := m.SetGraphicSelection(schema.RectXYWH(1500, 1500, 1500, 1500), 10)
	if !ok || overlay.Fill {
		t.Fatalf("expected unfilled overlay, got %+v, %v", overlay, ok)
	}
	pos := geom.TwipsToPlane(schema.Point{X: 1500, Y: 1500}, 10)
	req, ok := m.EditGraphic(EditStart, pos, 10)
	if !ok || req.Text != "selectgraphic type=start x=1500 y=1500" {
		t.Fatalf("unexpected edit start %+v", req)
	}
	if g, _ := m.Graphic(); !g.Editing {
		t.Fatalf("expected editing flag")
	}
	req, ok = m.EditGraphic(EditEnd, pos, 10)
	if !ok || req.Text != "selectgraphic type=end x=1500 y=1500" {
		t.Fatalf("unexpected edit end %+v", req)
	}
	if _, ok := m.SetGraphicSelection(schema.NoRect, 10); ok {
		t.Fatalf("sentinel must remove the overlay")
	}
	if _, ok := m.EditGraphic(EditStart, pos, 10); ok {
		t.Fatalf("edit without overlay must be ignored")
	}
}
