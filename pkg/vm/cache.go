package vm

import (
	"fmt"
	"io"
	"sync/atomic"
)

// CacheStats counts lookups of one cache. Counters are atomic so a
// reporting goroutine may read them while the engine runs.
type CacheStats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (s *CacheStats) hit() {
	if s != nil {
		s.hits.Add(1)
	}
}

func (s *CacheStats) miss() {
	if s != nil {
		s.misses.Add(1)
	}
}

func (s *CacheStats) Hits() uint64   { return s.hits.Load() }
func (s *CacheStats) Misses() uint64 { return s.misses.Load() }

// HitRate is the percentage of hits, 0 when the cache was never used.
func (s *CacheStats) HitRate() float64 {
	h, m := s.Hits(), s.Misses()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m) * 100.0
}

func (s *CacheStats) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
}

// --- Per-family property cache ---

const (
	propertyCacheBits  = 5
	propertyCacheLines = 1 << propertyCacheBits
	propertyCacheMask  = propertyCacheLines - 1
)

type propertyCacheLine struct {
	pd    *PropertyDescriptor
	shape *Shape
}

// PropertyCache is a direct-mapped cache of descriptor lookups inside one
// shape family, indexed by the low bits of the field id.
type PropertyCache struct {
	lines [propertyCacheLines]propertyCacheLine
	stats *CacheStats
}

// Get returns the cached descriptor for (id, shape), or nil.
func (c *PropertyCache) Get(id int, shape *Shape) *PropertyDescriptor {
	line := &c.lines[id&propertyCacheMask]
	if line.shape == shape && line.pd != nil && line.pd.nameID == id {
		c.stats.hit()
		return line.pd
	}
	c.stats.miss()
	return nil
}

func (c *PropertyCache) Add(pd *PropertyDescriptor, shape *Shape) {
	c.lines[pd.nameID&propertyCacheMask] = propertyCacheLine{pd: pd, shape: shape}
}

func (c *PropertyCache) Clear() {
	c.lines = [propertyCacheLines]propertyCacheLine{}
}

// --- Last accessed property cache ---

type lastAccessLine struct {
	shape *Shape
	pd    *PropertyDescriptor
}

// LastAccessCache remembers, per field id, the last shape a lookup ran on
// and the descriptor it found. It grows to cover the largest id seen.
type LastAccessCache struct {
	lines []lastAccessLine
	stats *CacheStats
}

// Get hits when the last lookup for id ran on shape.
func (c *LastAccessCache) Get(id int, shape *Shape) *PropertyDescriptor {
	if id >= 0 && id < len(c.lines) {
		if line := c.lines[id]; line.shape == shape && line.pd != nil {
			c.stats.hit()
			return line.pd
		}
	}
	c.stats.miss()
	return nil
}

// GetForWrite also hits when the last lookup ran on a data-property child of
// shape that added id; next is then the shape to transition to.
func (c *LastAccessCache) GetForWrite(id int, shape *Shape) (pd *PropertyDescriptor, next *Shape) {
	if id >= 0 && id < len(c.lines) {
		line := c.lines[id]
		switch {
		case line.pd == nil:
		case line.shape == shape:
			c.stats.hit()
			return line.pd, nil
		case line.shape != nil && line.shape.parent == shape &&
			line.shape.descriptor == line.pd && line.pd.attrs == AttrData:
			c.stats.hit()
			return line.pd, line.shape
		}
	}
	c.stats.miss()
	return nil, nil
}

func (c *LastAccessCache) Update(id int, shape *Shape, pd *PropertyDescriptor) {
	if id < 0 {
		return
	}
	if id >= len(c.lines) {
		c.resize(id + 1)
	}
	c.lines[id] = lastAccessLine{shape: shape, pd: pd}
}

// resize grows the line table, doubling to amortize interning of new ids.
func (c *LastAccessCache) resize(minLen int) {
	newLen := 2 * len(c.lines)
	if newLen < 64 {
		newLen = 64
	}
	if newLen < minLen {
		newLen = minLen
	}
	grown := make([]lastAccessLine, newLen)
	copy(grown, c.lines)
	c.lines = grown
}

func (c *LastAccessCache) Clear() {
	clear(c.lines)
}

// --- Container cache ---

// ContainerCache maps inherited descriptors to the object holding their
// storage. A descriptor owns at most one slot, assigned on first binding;
// rebinding clears the slot so readers fall back to the descriptor.
type ContainerCache struct {
	slots []*Object
	stats *CacheStats
}

// Update assigns pd a slot if needed and stores its current container.
func (c *ContainerCache) Update(pd *PropertyDescriptor) {
	if pd.container == nil {
		return
	}
	if pd.cacheSlot == noCacheSlot {
		pd.cacheSlot = len(c.slots)
		c.slots = append(c.slots, nil)
	}
	c.slots[pd.cacheSlot] = pd.container
}

func (c *ContainerCache) invalidate(pd *PropertyDescriptor) {
	if pd.cacheSlot != noCacheSlot {
		c.slots[pd.cacheSlot] = nil
	}
}

// Lookup returns the object holding pd's storage, refilling an invalidated slot.
func (c *ContainerCache) Lookup(pd *PropertyDescriptor) *Object {
	if pd.cacheSlot != noCacheSlot {
		if obj := c.slots[pd.cacheSlot]; obj != nil {
			c.stats.hit()
			return obj
		}
	}
	c.stats.miss()
	c.Update(pd)
	return pd.container
}

func (c *ContainerCache) Clear() {
	clear(c.slots)
}

func (c *ContainerCache) Len() int { return len(c.slots) }

// --- Reporting ---

// PrintCacheStats writes a short hit/miss summary of every runtime cache.
func (rt *Runtime) PrintCacheStats(w io.Writer) {
	rows := []struct {
		name  string
		stats *CacheStats
	}{
		{"family property cache", &rt.counters.familyCache},
		{"last accessed cache", &rt.counters.lastAccess},
		{"container cache", &rt.counters.containers},
	}
	for _, row := range rows {
		total := row.stats.Hits() + row.stats.Misses()
		if total == 0 {
			fmt.Fprintf(w, "%-22s no activity\n", row.name+":")
			continue
		}
		fmt.Fprintf(w, "%-22s total %d, hits %d (%.1f%%), misses %d\n",
			row.name+":", total, row.stats.Hits(), row.stats.HitRate(), row.stats.Misses())
	}
}
