package tilecache

import "pkt.systems/tilesync/schema"

// GridRect is an inclusive range of tile grid cells.
type GridRect struct {
	MinX, MinY, MaxX, MaxY int
}

// Contains reports whether the cell lies inside g.
func (g GridRect) Contains(x, y int) bool {
	return x >= g.MinX && x <= g.MaxX && y >= g.MinY && y <= g.MaxY
}

// ResetPrefetch points pre-fetching at part. The ring marker is reset when
// the part differs from the previous one; the return value reports that.
func (m *Manager) ResetPrefetch(part int) bool {
	if m.prefetchPart == part {
		return false
	}
	m.prefetchPart = part
	m.prefetchRing = 0
	return true
}

// PrefetchRing returns the last ring handed out; 0 means nothing pre-fetched yet.
func (m *Manager) PrefetchRing() int {
	return m.prefetchRing
}

// NextPrefetch returns the cells of the next ring around visible that are
// neither active, cached nor already requested, clipped to limit. It returns
// nil once maxRings rings have been handed out.
func (m *Manager) NextPrefetch(visible, limit GridRect, zoom, maxRings int) []schema.TileKey {
	part := m.prefetchPart
	if part < 0 {
		return nil
	}
	var keys []schema.TileKey
	for m.prefetchRing < maxRings && len(keys) == 0 {
		m.prefetchRing++
		r := m.prefetchRing
		outer := GridRect{MinX: visible.MinX - r, MinY: visible.MinY - r, MaxX: visible.MaxX + r, MaxY: visible.MaxY + r}
		inner := GridRect{MinX: outer.MinX + 1, MinY: outer.MinY + 1, MaxX: outer.MaxX - 1, MaxY: outer.MaxY - 1}
		for y := outer.MinY; y <= outer.MaxY; y++ {
			for x := outer.MinX; x <= outer.MaxX; x++ {
				if inner.Contains(x, y) || !limit.Contains(x, y) {
					continue
				}
				key := schema.TileKey{X: x, Y: y, Zoom: zoom, Part: part}
				if _, ok := m.slots[key]; ok {
					continue
				}
				if _, ok := m.prefetch[key]; ok {
					continue
				}
				if _, ok := m.pending[key]; ok {
					continue
				}
				m.pending[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	if len(keys) > 0 {
		m.log.Debug("tile cache prefetch ring", "part", part, "ring", m.prefetchRing, "tiles", len(keys))
	}
	return keys
}
