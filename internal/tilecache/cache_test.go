package tilecache

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/schema"
)

func key(x, y int) schema.TileKey {
	return schema.TileKey{X: x, Y: y, Zoom: 10, Part: 0}
}

func newGrid(t *testing.T) *Manager {
	t.Helper()
	m := New(coords.Default(), nil)
	for y := 0; y <= 1; y++ {
		for x := 0; x <= 2; x++ {
			if res := m.Add(key(x, y)); !res.Created {
				t.Fatalf("expected slot %d,%d to be created", x, y)
			}
		}
	}
	return m
}

var everything = schema.RectXYWH(0, 0, 100000, 100000)

func TestAddCountsEmptyTiles(t *testing.T) {
	m := newGrid(t)
	if m.EmptyTiles() != 6 || m.Len() != 6 {
		t.Fatalf("expected 6 empty slots, got %d/%d", m.EmptyTiles(), m.Len())
	}
	if res := m.Add(key(0, 0)); res.Created {
		t.Fatalf("duplicate add should not create a slot")
	}
	if m.EmptyTiles() != 6 {
		t.Fatalf("duplicate add changed the counter: %d", m.EmptyTiles())
	}
}

func TestInvalidateCountsPerRegion(t *testing.T) {
	m := newGrid(t)
	region := schema.RectXYWH(100, 100, 100, 100)
	req := InvalidateRequest{Region: region, Part: 0, Visible: everything, CurrentPart: 0}

	first := m.Invalidate(req)
	if diff := cmp.Diff([]schema.TileKey{key(0, 0)}, first.Requests); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if !first.PartRendered {
		t.Fatalf("expected part rendered on first pass")
	}
	second := m.Invalidate(req)
	if second.PartRendered {
		t.Fatalf("part rendered must fire once per transition")
	}
	slot, _ := m.Slot(key(0, 0))
	if slot.InvalidCount != 2 {
		t.Fatalf("expected invalid count 2, got %d", slot.InvalidCount)
	}
	other, _ := m.Slot(key(2, 1))
	if other.InvalidCount != 0 {
		t.Fatalf("untouched slot was invalidated: %+v", other)
	}

	m.Receive(Response{Key: key(0, 0), Image: schema.TileImage{Format: "png"}})
	slot, _ = m.Slot(key(0, 0))
	if slot.InvalidCount != 1 || !slot.Loaded || slot.Image == nil {
		t.Fatalf("unexpected slot after response: %+v", slot)
	}
}

func TestInvalidateIgnoresOtherParts(t *testing.T) {
	m := newGrid(t)
	other := schema.TileKey{X: 0, Y: 0, Zoom: 10, Part: 1}
	m.Add(other)
	res := m.Invalidate(InvalidateRequest{Region: everything, Part: 1, Visible: everything, CurrentPart: 0})
	if diff := cmp.Diff([]schema.TileKey{other}, res.Requests); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if res.PartRendered {
		t.Fatalf("part rendered only fires for the displayed part")
	}
	slot, _ := m.Slot(key(0, 0))
	if slot.InvalidCount != 0 {
		t.Fatalf("part 0 slot touched by part 1 invalidation")
	}
}

func TestInvalidateOrdersByCursorDistance(t *testing.T) {
	m := newGrid(t)
	res := m.Invalidate(InvalidateRequest{
		Region:  everything,
		Part:    0,
		Visible: everything,
		Cursor:  coords.FPoint{X: 2, Y: 1},
	})
	want := []schema.TileKey{key(2, 1), key(2, 0), key(1, 1), key(1, 0), key(0, 1), key(0, 0)}
	if diff := cmp.Diff(want, res.Requests); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	prev := -1.0
	for _, k := range res.Requests {
		d := coords.GridDistance(k.X, k.Y, coords.FPoint{X: 2, Y: 1})
		if d < prev {
			t.Fatalf("requests not in non-decreasing distance order: %v", res.Requests)
		}
		prev = d
	}
}

func TestInvalidateEvictsOffscreenTiles(t *testing.T) {
	m := newGrid(t)
	res := m.Invalidate(InvalidateRequest{Region: everything, Part: 0, Visible: schema.RectXYWH(0, 0, 3000, 3000)})
	if diff := cmp.Diff([]schema.TileKey{key(0, 0)}, res.Requests); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if len(res.Evicted) != 5 || m.Len() != 1 {
		t.Fatalf("expected 5 evictions leaving 1 slot, got %d evicted, %d slots", len(res.Evicted), m.Len())
	}
	if m.EmptyTiles() != 1 {
		t.Fatalf("evicted empty slots should release their count, got %d", m.EmptyTiles())
	}
	if _, ok := m.Slot(key(1, 0)); ok {
		t.Fatalf("expected off-screen slot to be removed")
	}
}

func TestInvalidatePurgesPrefetchEntries(t *testing.T) {
	m := New(coords.Default(), nil)
	inside := schema.TileKey{X: 5, Y: 5, Zoom: 10, Part: 0}
	otherPart := schema.TileKey{X: 5, Y: 5, Zoom: 10, Part: 1}
	outside := schema.TileKey{X: 9, Y: 9, Zoom: 10, Part: 0}
	for _, k := range []schema.TileKey{inside, otherPart, outside} {
		if res := m.Receive(Response{Key: k, PreFetch: true}); res.Outcome != OutcomeCached {
			t.Fatalf("expected %v cached, got %v", k, res.Outcome)
		}
	}
	res := m.Invalidate(InvalidateRequest{Region: schema.RectXYWH(20000, 20000, 100, 100), Part: 0, Visible: everything})
	if res.PrefetchEvicted != 1 {
		t.Fatalf("expected 1 prefetch eviction, got %d", res.PrefetchEvicted)
	}
	if _, ok := m.Prefetched(inside); ok {
		t.Fatalf("expected intersecting entry purged")
	}
	if _, ok := m.Prefetched(otherPart); !ok {
		t.Fatalf("entry of another part must survive")
	}
	if _, ok := m.Prefetched(outside); !ok {
		t.Fatalf("non-intersecting entry must survive")
	}
}

func TestReceiveDiscardsUnsolicited(t *testing.T) {
	m := New(coords.Default(), nil)
	res := m.Receive(Response{Key: schema.TileKey{Zoom: 2}})
	if res.Outcome != OutcomeDiscarded || res.AllLoaded {
		t.Fatalf("expected discard, got %+v", res)
	}
	if m.PrefetchLen() != 0 || m.Len() != 0 {
		t.Fatalf("discard mutated the cache")
	}
}

func TestAllLoadedOncePerCrossing(t *testing.T) {
	m := New(coords.Default(), nil)
	m.Add(key(0, 0))
	m.Add(key(1, 0))
	if res := m.Receive(Response{Key: key(0, 0)}); res.AllLoaded {
		t.Fatalf("all loaded fired early")
	}
	if res := m.Receive(Response{Key: key(1, 0)}); !res.AllLoaded {
		t.Fatalf("expected all loaded on the last empty tile")
	}
	if res := m.Receive(Response{Key: key(1, 0)}); res.AllLoaded {
		t.Fatalf("all loaded fired twice")
	}
	m.Add(key(2, 0))
	if res := m.Receive(Response{Key: key(2, 0)}); !res.AllLoaded {
		t.Fatalf("expected all loaded on the next crossing")
	}
}

func TestInvalidCountNeverNegative(t *testing.T) {
	m := New(coords.Default(), nil)
	m.Add(key(0, 0))
	m.Receive(Response{Key: key(0, 0)})
	m.Receive(Response{Key: key(0, 0)})
	slot, _ := m.Slot(key(0, 0))
	if slot.InvalidCount != 0 {
		t.Fatalf("expected invalid count 0, got %d", slot.InvalidCount)
	}
}

func TestAddBindsPrefetchedImage(t *testing.T) {
	m := New(coords.Default(), nil)
	m.Receive(Response{Key: key(3, 3), Image: schema.TileImage{Format: "png", Width: 256}, PreFetch: true})
	res := m.Add(key(3, 3))
	if !res.Created || !res.Prefetched || !res.AllLoaded {
		t.Fatalf("unexpected add result %+v", res)
	}
	slot, _ := m.Slot(key(3, 3))
	if !slot.Loaded || slot.Image == nil || slot.Image.Width != 256 {
		t.Fatalf("expected prefetched image bound, got %+v", slot)
	}
	if m.PrefetchLen() != 0 {
		t.Fatalf("prefetch entry should move to the slot")
	}
}

func TestRemoveReleasesEmptySlot(t *testing.T) {
	m := New(coords.Default(), nil)
	m.Add(key(0, 0))
	m.Add(key(1, 0))
	m.Receive(Response{Key: key(0, 0)})
	if !m.Remove(key(1, 0)) {
		t.Fatalf("expected the empty slot to be removed")
	}
	if m.EmptyTiles() != 0 {
		t.Fatalf("unexpected counter %d", m.EmptyTiles())
	}
	if !m.Remove(key(0, 0)) || m.Remove(key(0, 0)) {
		t.Fatalf("remove should report only existing slots")
	}
	if m.EmptyTiles() != 0 || m.Len() != 0 {
		t.Fatalf("unexpected state after removal: empty=%d slots=%d", m.EmptyTiles(), m.Len())
	}
}

func TestRemovedEmptySlotDoesNotCountAsLoaded(t *testing.T) {
	m := New(coords.Default(), nil)
	m.Add(key(0, 0))
	m.Remove(key(0, 0))
	m.Add(key(0, 0))
	if m.EmptyTiles() != 1 {
		t.Fatalf("expected the re-added slot outstanding, got %d", m.EmptyTiles())
	}
	if res := m.Receive(Response{Key: key(0, 0)}); !res.AllLoaded {
		t.Fatalf("expected all loaded only once the response arrives")
	}
}

func TestClearPrefetchKeepsSlots(t *testing.T) {
	m := New(coords.Default(), nil)
	m.Add(key(0, 0))
	m.Receive(Response{Key: key(5, 5), PreFetch: true})
	if n := m.ClearPrefetch(); n != 1 {
		t.Fatalf("expected 1 prefetch entry dropped, got %d", n)
	}
	if m.PrefetchLen() != 0 || m.Len() != 1 || m.EmptyTiles() != 1 {
		t.Fatalf("unexpected state: prefetch=%d slots=%d empty=%d", m.PrefetchLen(), m.Len(), m.EmptyTiles())
	}
}
