package rendercache

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gogpu/ggui/internal/logging"
	"github.com/gogpu/ggui/layout"
)

// Default cache configuration constants.
const (
	// DefaultBudget is the default memory budget in bytes.
	DefaultBudget = 64 << 20
	// DefaultEntryLimit is the largest region cached by default.
	DefaultEntryLimit = 16 << 20
	// DefaultTolerance is how far, in logical pixels, a region may move
	// and still be revalidated instead of redrawn.
	DefaultTolerance = 32
)

// Region is a handle to rasterized pixels owned by a drawing backend.
type Region interface {
	// Bytes reports the memory held by the region.
	Bytes() int64
}

// Status is the outcome of a Lookup.
type Status uint8

const (
	Miss        Status = iota // No usable entry; draw fresh and Store
	Hit                       // Blit the cached region as is
	Revalidated               // Same pixels at shifted bounds, possibly fading
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Revalidated:
		return "revalidated"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Entry is a snapshot of one cached region. The region is borrowed: it
// stays owned by the Cache and must not be retained past the frame.
type Entry struct {
	ID          layout.ID
	Fingerprint uint64
	Region      Region
	Bounds      layout.Rect // absolute logical bounds the region was drawn for
	Valid       bool
	Fade        float64 // 0 just revalidated, 1 settled
	Bytes       int64
}

// Fading reports whether a fade transition is in progress.
func (e Entry) Fading() bool { return e.Fade < 1 }

type entry struct {
	Entry
	node *lruNode
}

// Stats contains cache statistics for monitoring.
type Stats struct {
	Entries       int
	Bytes         int64
	Budget        int64
	Hits          uint64
	Misses        uint64
	Revalidations uint64
	Invalidations uint64
	Evictions     uint64
	Rejected      uint64 // regions over the single-entry limit or the budget
	HitRate       float64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	budget     int64
	entryLimit int64
	tolerance  float64
	fade       bool
}

// WithBudget sets the total memory budget in bytes.
func WithBudget(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.budget = bytes
		}
	}
}

// WithEntryLimit sets the largest region, in bytes, that will be cached.
func WithEntryLimit(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.entryLimit = bytes
		}
	}
}

// WithTolerance sets how far a region may move and still be revalidated.
func WithTolerance(px float64) Option {
	return func(o *options) {
		if px >= 0 {
			o.tolerance = px
		}
	}
}

// WithFade enables the fade transition for revalidated regions.
func WithFade(enabled bool) Option {
	return func(o *options) { o.fade = enabled }
}

// Cache maps node ids to rasterized regions.
//
// All methods are safe for concurrent use, although a frame's lookups and
// stores normally come from a single goroutine.
type Cache struct {
	mu      sync.Mutex
	entries map[layout.ID]*entry
	lru     lruList
	size    int64
	opts    options

	// epoch counts Evict calls. evicted maps each evicted id to the epoch
	// of its eviction, so a frame painted from an older display list
	// cannot store a region for a node removed after the list was built.
	epoch   uint64
	evicted map[layout.ID]uint64

	hits          atomic.Uint64
	misses        atomic.Uint64
	revalidations atomic.Uint64
	invalidations atomic.Uint64
	evictions     atomic.Uint64
	rejected      atomic.Uint64
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	o := options{
		budget:     DefaultBudget,
		entryLimit: DefaultEntryLimit,
		tolerance:  DefaultTolerance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		entries: make(map[layout.ID]*entry),
		evicted: make(map[layout.ID]uint64),
		opts:    o,
	}
}

// FadeEnabled reports whether revalidated regions fade in.
func (c *Cache) FadeEnabled() bool { return c.opts.fade }

// Lookup reports whether the cached region for id can be reused at bounds.
// A fingerprint mismatch, a size change or a move beyond the tolerance
// drops the entry and reports Miss.
func (c *Cache) Lookup(id layout.ID, fingerprint uint64, bounds layout.Rect) (Entry, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || !e.Valid {
		c.misses.Add(1)
		return Entry{}, Miss
	}
	if e.Fingerprint != fingerprint || !sameSize(e.Bounds, bounds) ||
		!c.withinTolerance(e.Bounds, bounds) {
		c.dropLocked(e)
		c.invalidations.Add(1)
		c.misses.Add(1)
		return Entry{}, Miss
	}

	c.lru.moveToFront(e.node)
	if e.Bounds != bounds {
		e.Bounds = bounds
		if c.opts.fade {
			e.Fade = 0
		}
		c.revalidations.Add(1)
		if c.opts.fade {
			return e.Entry, Revalidated
		}
		c.hits.Add(1)
		return e.Entry, Hit
	}
	if e.Fading() {
		return e.Entry, Revalidated
	}
	c.hits.Add(1)
	return e.Entry, Hit
}

func sameSize(a, b layout.Rect) bool {
	return a.Width == b.Width && a.Height == b.Height
}

func (c *Cache) withinTolerance(a, b layout.Rect) bool {
	return math.Abs(a.X-b.X) <= c.opts.tolerance && math.Abs(a.Y-b.Y) <= c.opts.tolerance
}

// Store inserts or replaces the region for id. It reports false when the
// region exceeds the single-entry limit or the whole budget; the old entry,
// if any, is dropped in that case. It also reports false for an id passed
// to Evict, since node ids are never reused. Stored entries start settled
// (fade 1).
func (c *Cache) Store(id layout.ID, fingerprint uint64, region Region, bounds layout.Rect) bool {
	if region == nil {
		return false
	}
	size := region.Bytes()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dead := c.evicted[id]; dead {
		logging.L().Debug("rendercache: region for evicted node dropped", "node", id)
		return false
	}

	if old, ok := c.entries[id]; ok {
		c.dropLocked(old)
	}
	if size > c.opts.entryLimit || size > c.opts.budget {
		c.rejected.Add(1)
		logging.L().Warn("rendercache: region not cached",
			"node", id, "bytes", size, "limit", min(c.opts.entryLimit, c.opts.budget))
		return false
	}
	c.evictUntilLocked(c.opts.budget - size)

	e := &entry{Entry: Entry{
		ID:          id,
		Fingerprint: fingerprint,
		Region:      region,
		Bounds:      bounds,
		Valid:       true,
		Fade:        1,
		Bytes:       size,
	}}
	e.node = c.lru.pushFront(id)
	c.entries[id] = e
	c.size += size
	return true
}

// AdvanceFade moves id's fade progress toward 1 by step and returns the
// new progress. Progress never decreases and is clamped at 1.
func (c *Cache) AdvanceFade(id layout.ID, step float64) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return 0, false
	}
	if step > 0 {
		e.Fade = math.Min(1, e.Fade+step)
	}
	return e.Fade, true
}

// Get returns the entry for id without touching recency or statistics.
func (c *Cache) Get(id layout.ID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Invalidate drops id's entry. It is called when the node's geometry
// generation changes.
func (c *Cache) Invalidate(id layout.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		c.dropLocked(e)
		c.invalidations.Add(1)
	}
}

// InvalidateAll drops every entry, e.g. after a scale factor change.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.entries); n > 0 {
		c.invalidations.Add(uint64(n))
	}
	c.entries = make(map[layout.ID]*entry)
	c.lru.clear()
	c.size = 0
}

// Evict removes the entries of ids, which must belong to removed nodes.
// Later stores for these ids are refused until Prune forgets them.
func (c *Cache) Evict(ids ...layout.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		return 0
	}
	c.epoch++
	n := 0
	for _, id := range ids {
		c.evicted[id] = c.epoch
		if e, ok := c.entries[id]; ok {
			c.dropLocked(e)
			n++
		}
	}
	c.evictions.Add(uint64(n))
	return n
}

// Epoch returns the number of Evict calls so far. A display list records
// it when built.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Prune forgets the evicted ids of Evict calls up to epoch. Call it once
// no display list built before that epoch can be painted anymore.
func (c *Cache) Prune(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.evicted {
		if e <= epoch {
			delete(c.evicted, id)
		}
	}
}

// Subtree lists a node and its descendants.
// *layout.Store satisfies it.
type Subtree interface {
	Descendants(id layout.ID) ([]layout.ID, error)
}

// EvictSubtree removes the entries of id and all of its descendants.
// It must run before the nodes are removed from the tree.
func (c *Cache) EvictSubtree(id layout.ID, tree Subtree) (int, error) {
	ids, err := tree.Descendants(id)
	if err != nil {
		return 0, err
	}
	return c.Evict(ids...), nil
}

// Trim evicts least recently used entries until at most target bytes are
// held.
func (c *Cache) Trim(target int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictUntilLocked(max(target, 0))
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	s := Stats{Entries: len(c.entries), Bytes: c.size, Budget: c.opts.budget}
	c.mu.Unlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Revalidations = c.revalidations.Load()
	s.Invalidations = c.invalidations.Load()
	s.Evictions = c.evictions.Load()
	s.Rejected = c.rejected.Load()
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// evictUntilLocked evicts LRU entries until size is at or below target.
// Must be called with c.mu held.
func (c *Cache) evictUntilLocked(target int64) {
	for c.size > target {
		id, ok := c.lru.oldest()
		if !ok {
			break
		}
		c.dropLocked(c.entries[id])
		c.evictions.Add(1)
	}
}

// dropLocked unlinks e. Must be called with c.mu held.
func (c *Cache) dropLocked(e *entry) {
	c.lru.remove(e.node)
	c.size -= e.Bytes
	delete(c.entries, e.ID)
}
