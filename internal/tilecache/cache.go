// Package tilecache tracks the active tile slots of the viewport, the
// speculative pre-fetch cache, and the invalidation and re-request cycle.
package tilecache

import (
	"context"
	"sort"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/logx"
	"pkt.systems/tilesync/schema"
)

// Slot is one active grid cell of the viewport.
type Slot struct {
	Key    schema.TileKey
	Image  *schema.TileImage
	Loaded bool
	// InvalidCount is the number of invalidations not yet answered by a fresh
	// image. A slot with InvalidCount > 0 still shows its stale image.
	InvalidCount uint
}

// Manager owns the active slots and the pre-fetch cache. It is not safe for
// concurrent use; the engine serializes every call.
type Manager struct {
	geom     coords.Transform
	log      pslog.Logger
	slots    map[schema.TileKey]*Slot
	prefetch map[schema.TileKey]schema.TileImage
	// pending holds keys requested speculatively; their responses go to the
	// pre-fetch cache even when the server does not flag them.
	pending    map[schema.TileKey]struct{}
	emptyTiles int

	lastValidPart int
	prefetchPart  int
	prefetchRing  int
}

// New constructs a Manager.
func New(geom coords.Transform, logger pslog.Logger) *Manager {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Manager{
		geom:          geom,
		log:           logger,
		slots:         make(map[schema.TileKey]*Slot),
		prefetch:      make(map[schema.TileKey]schema.TileImage),
		pending:       make(map[schema.TileKey]struct{}),
		lastValidPart: -1,
		prefetchPart:  -1,
	}
}

// AddResult describes the slot created for a cell entering the window.
type AddResult struct {
	Created bool
	// Prefetched is set when a pre-fetched image was bound immediately and no
	// request is needed.
	Prefetched bool
	AllLoaded  bool
}

// Add creates the slot for a cell entering the active window. Every new slot
// counts as one outstanding empty tile until an image is bound.
func (m *Manager) Add(key schema.TileKey) AddResult {
	if _, ok := m.slots[key]; ok {
		return AddResult{}
	}
	slot := &Slot{Key: key}
	m.slots[key] = slot
	m.emptyTiles++
	res := AddResult{Created: true}
	if img, ok := m.prefetch[key]; ok {
		delete(m.prefetch, key)
		res.Prefetched = true
		res.AllLoaded = m.bind(slot, img)
		logx.WithTile(m.log, key).Trace("tile cache prefetch hit")
	}
	return res
}

// Remove drops the slot of a cell leaving the window and reports whether one
// existed. An unloaded slot stops counting as outstanding. Dropping slots
// never counts as a load, so Remove has no all-loaded signal.
func (m *Manager) Remove(key schema.TileKey) bool {
	slot, ok := m.slots[key]
	if !ok {
		return false
	}
	delete(m.slots, key)
	if !slot.Loaded && m.emptyTiles > 0 {
		m.emptyTiles--
	}
	return true
}

// Slot returns a copy of the slot at key.
func (m *Manager) Slot(key schema.TileKey) (Slot, bool) {
	slot, ok := m.slots[key]
	if !ok {
		return Slot{}, false
	}
	return *slot, true
}

// Slots returns copies of all active slots in row-major order.
func (m *Manager) Slots() []Slot {
	out := make([]Slot, 0, len(m.slots))
	for _, key := range m.sortedKeys() {
		out = append(out, *m.slots[key])
	}
	return out
}

// Len returns the number of active slots.
func (m *Manager) Len() int {
	return len(m.slots)
}

// EmptyTiles returns the number of slots still waiting for their first image.
func (m *Manager) EmptyTiles() int {
	return m.emptyTiles
}

// Prefetched returns the cached pre-fetch image for key.
func (m *Manager) Prefetched(key schema.TileKey) (schema.TileImage, bool) {
	img, ok := m.prefetch[key]
	return img, ok
}

// PrefetchLen returns the number of pre-fetch cache entries.
func (m *Manager) PrefetchLen() int {
	return len(m.prefetch)
}

// ClearPrefetch drops the pre-fetch cache and the speculative requests in
// flight, keeping the active slots. It returns the number of cached entries
// dropped.
func (m *Manager) ClearPrefetch() int {
	n := len(m.prefetch)
	m.prefetch = make(map[schema.TileKey]schema.TileImage)
	m.pending = make(map[schema.TileKey]struct{})
	m.prefetchRing = 0
	return n
}

// Response is a decoded tile response addressed to the cache.
type Response struct {
	Key      schema.TileKey
	Image    schema.TileImage
	PreFetch bool
}

// Outcome is what the cache did with a response.
type Outcome int

const (
	// OutcomeDiscarded means the response was stale or unsolicited.
	OutcomeDiscarded Outcome = iota
	// OutcomeBound means the image was bound to an active slot.
	OutcomeBound
	// OutcomeCached means the image went to the pre-fetch cache.
	OutcomeCached
)

// ReceiveResult reports the outcome of a tile response.
type ReceiveResult struct {
	Outcome   Outcome
	AllLoaded bool
}

// Receive binds a response to its slot, caches it as a pre-fetch entry, or
// discards it.
func (m *Manager) Receive(resp Response) ReceiveResult {
	log := logx.WithTile(m.log, resp.Key)
	_, wasPending := m.pending[resp.Key]
	delete(m.pending, resp.Key)
	if slot, ok := m.slots[resp.Key]; ok {
		if slot.InvalidCount > 0 {
			slot.InvalidCount--
		}
		allLoaded := m.bind(slot, resp.Image)
		log.Trace("tile cache bound", "invalid", slot.InvalidCount, "empty", m.emptyTiles)
		return ReceiveResult{Outcome: OutcomeBound, AllLoaded: allLoaded}
	}
	if resp.PreFetch || wasPending {
		m.prefetch[resp.Key] = resp.Image
		log.Trace("tile cache prefetch stored", "entries", len(m.prefetch))
		return ReceiveResult{Outcome: OutcomeCached}
	}
	log.Trace("tile cache discarded stale response")
	return ReceiveResult{Outcome: OutcomeDiscarded}
}

func (m *Manager) bind(slot *Slot, img schema.TileImage) bool {
	image := img
	slot.Image = &image
	if slot.Loaded {
		return false
	}
	slot.Loaded = true
	if m.emptyTiles == 0 {
		return false
	}
	m.emptyTiles--
	return m.emptyTiles == 0
}

// InvalidateRequest is one invalidation pass over a resolved part.
type InvalidateRequest struct {
	Region schema.Rect
	Part   int
	// Visible is the viewport's visible extent in twips.
	Visible schema.Rect
	// Cursor is the cursor position in fractional grid coordinates.
	Cursor      coords.FPoint
	CurrentPart int
}

// InvalidateResult lists the consequences of an invalidation pass.
type InvalidateResult struct {
	// Requests are visible invalidated tiles, nearest to the cursor first.
	Requests []schema.TileKey
	// Evicted are invalidated tiles outside the visible extent, removed outright.
	Evicted         []schema.TileKey
	PrefetchEvicted int
	PartRendered    bool
}

// Invalidate marks every active slot of req.Part intersecting req.Region.
// Visible slots are queued for re-request; off-screen ones are evicted.
// Pre-fetch entries of the part intersecting the region are purged.
func (m *Manager) Invalidate(req InvalidateRequest) InvalidateResult {
	res := InvalidateResult{}
	type queued struct {
		key  schema.TileKey
		dist float64
	}
	var queue []queued
	for _, key := range m.sortedKeys() {
		if key.Part != req.Part {
			continue
		}
		bounds := m.geom.TileFootprint(key)
		if !req.Region.Intersects(bounds) {
			continue
		}
		slot := m.slots[key]
		slot.InvalidCount++
		if req.Visible.Intersects(bounds) {
			queue = append(queue, queued{key: key, dist: coords.GridDistance(key.X, key.Y, req.Cursor)})
			continue
		}
		m.prefetchRing = 0
		m.Remove(key)
		res.Evicted = append(res.Evicted, key)
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].dist < queue[j].dist })
	for _, q := range queue {
		res.Requests = append(res.Requests, q.key)
	}

	for key := range m.prefetch {
		if key.Part != req.Part {
			continue
		}
		if req.Region.Intersects(m.geom.TileFootprint(key)) {
			delete(m.prefetch, key)
			res.PrefetchEvicted++
		}
	}

	if req.Part == req.CurrentPart && req.Part != m.lastValidPart {
		m.lastValidPart = req.Part
		res.PartRendered = true
	}
	m.log.Debug("tile cache invalidated", "part", req.Part, "requests", len(res.Requests), "evicted", len(res.Evicted), "prefetch_evicted", res.PrefetchEvicted)
	return res
}

func (m *Manager) sortedKeys() []schema.TileKey {
	keys := make([]schema.TileKey, 0, len(m.slots))
	for key := range m.slots {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Part != b.Part {
			return a.Part < b.Part
		}
		if a.Zoom != b.Zoom {
			return a.Zoom < b.Zoom
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return keys
}
