// Package buffer implements the buffer pool: a bounded, pinned page cache
// with approximate-LRU eviction (spec.md §4.2). Grounded on the intrusive
// doubly-linked-list LRU used by the pack's tinySQL pager, adapted to the
// mutex-per-pool scheme spec.md §9 explicitly allows in place of per-frame
// atomics.
package buffer

import (
	"sync"

	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storage/disk"
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// maxEvictionScan bounds how many LRU-tail candidates a single eviction
// round inspects (spec.md §4.2: "up to 64 candidates per round").
const maxEvictionScan = 64

// frame is one buffer-pool slot.
type frame struct {
	id     page.ID
	data   *page.Page
	pinned int
	dirty  bool
	access uint64

	prev, next *frame
}

// Pool is a bounded cache of pages, backed by a disk.Manager.
type Pool struct {
	mu       sync.Mutex
	disk     *disk.Manager
	capacity int
	frames   map[page.ID]*frame
	head     *frame // most recently used
	tail     *frame // least recently used
	clock    uint64

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a buffer pool of the given capacity (number of 4 KiB frames)
// backed by disk manager d.
func New(d *disk.Manager, capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{
		disk:     d,
		capacity: capacity,
		frames:   make(map[page.ID]*frame, capacity),
	}
}

// Handle is a scoped reference to a pinned page. It must be released via
// Unpin exactly once on every exit path (spec.md §4.2, §9).
type Handle struct {
	pool *Pool
	fr   *frame
	id   page.ID
}

// Page exposes the underlying page bytes for reading/writing in place. The
// caller must call Unpin(dirty=true) after a mutation.
func (h *Handle) Page() *page.Page { return h.fr.data }

// ID returns the handle's page id.
func (h *Handle) ID() page.ID { return h.id }

// Pin loads (or finds cached) the page with the given id and returns a
// pinned Handle. Every Pin must be matched by exactly one Unpin.
func (p *Pool) Pin(id page.ID) (*Handle, error) {
	p.mu.Lock()

	if fr, ok := p.frames[id]; ok {
		fr.pinned++
		p.clock++
		fr.access = p.clock
		p.unlink(fr)
		p.pushFront(fr)
		p.hits++
		p.mu.Unlock()
		return &Handle{pool: p, fr: fr, id: id}, nil
	}
	p.misses++

	if len(p.frames) >= p.capacity {
		if !p.evictLocked() {
			p.mu.Unlock()
			metrics.BufferPoolOutOfFramesTotal.Inc()
			return nil, storeerr.New(storeerr.OutOfFrames, "no unpinned frame available").WithPage(int64(id))
		}
	}
	p.mu.Unlock()

	pg, err := p.disk.ReadPage(id)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another goroutine may have loaded the same page while we read from
	// disk without the lock held; prefer the existing frame to preserve the
	// "no two frames hold the same page id concurrently" invariant.
	if fr, ok := p.frames[id]; ok {
		fr.pinned++
		p.clock++
		fr.access = p.clock
		p.unlink(fr)
		p.pushFront(fr)
		return &Handle{pool: p, fr: fr, id: id}, nil
	}

	if len(p.frames) >= p.capacity {
		if !p.evictLocked() {
			return nil, storeerr.New(storeerr.OutOfFrames, "no unpinned frame available").WithPage(int64(id))
		}
	}

	p.clock++
	fr := &frame{id: id, data: pg, pinned: 1, access: p.clock}
	p.frames[id] = fr
	p.pushFront(fr)
	return &Handle{pool: p, fr: fr, id: id}, nil
}

// Unpin releases one pin on the handle's frame. dirty, if true, marks the
// frame dirty; it never clears a dirty flag already set by a prior Unpin.
func (p *Pool) Unpin(h *Handle, dirty bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.fr.pinned > 0 {
		h.fr.pinned--
	}
	if dirty {
		h.fr.dirty = true
	}
}

// evictLocked evicts the least-recently-used unpinned frame, flushing it
// first if dirty. Scans at most maxEvictionScan candidates from the LRU
// tail. Must be called with p.mu held.
func (p *Pool) evictLocked() bool {
	f := p.tail
	scanned := 0
	for f != nil && scanned < maxEvictionScan {
		if f.pinned == 0 {
			if f.dirty {
				// Flush while still holding the frame's slot so a concurrent
				// Pin can't see half-written data; the disk manager itself
				// serializes the write.
				if err := p.disk.WritePage(f.id, f.data); err != nil {
					log.WithComponent("bufferpool").Error().Err(err).Msg("flush during eviction failed")
					return false
				}
			}
			p.unlink(f)
			delete(p.frames, f.id)
			p.evictions++
			metrics.BufferPoolEvictionsTotal.Inc()
			return true
		}
		f = f.prev
		scanned++
	}
	return false
}

// Flush writes back the page if dirty, without evicting it.
func (p *Pool) Flush(id page.ID) error {
	p.mu.Lock()
	fr, ok := p.frames[id]
	p.mu.Unlock()
	if !ok || !fr.dirty {
		return nil
	}
	if err := p.disk.WritePage(id, fr.data); err != nil {
		return err
	}
	p.mu.Lock()
	fr.dirty = false
	p.mu.Unlock()
	return nil
}

// FlushAll writes back every dirty page currently cached.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	dirty := make([]*frame, 0)
	for _, fr := range p.frames {
		if fr.dirty {
			dirty = append(dirty, fr)
		}
	}
	p.mu.Unlock()

	for _, fr := range dirty {
		if err := p.disk.WritePage(fr.id, fr.data); err != nil {
			return err
		}
		p.mu.Lock()
		fr.dirty = false
		p.mu.Unlock()
	}
	return nil
}

// Stats reports buffer pool occupancy and access statistics.
type Stats struct {
	PagesUsed int
	HitRate   float64
	Evictions uint64
}

// Stats returns a snapshot of pool statistics and mirrors them to Prometheus.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.hits + p.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(p.hits) / float64(total)
	}
	s := Stats{PagesUsed: len(p.frames), HitRate: hitRate, Evictions: p.evictions}
	metrics.BufferPoolPagesUsed.Set(float64(s.PagesUsed))
	metrics.BufferPoolHitRate.Set(s.HitRate)
	return s
}

func (p *Pool) pushFront(f *frame) {
	f.prev = nil
	f.next = p.head
	if p.head != nil {
		p.head.prev = f
	}
	p.head = f
	if p.tail == nil {
		p.tail = f
	}
}

func (p *Pool) unlink(f *frame) {
	if f.prev != nil {
		f.prev.next = f.next
	} else if p.head == f {
		p.head = f.next
	}
	if f.next != nil {
		f.next.prev = f.prev
	} else if p.tail == f {
		p.tail = f.prev
	}
	f.prev = nil
	f.next = nil
}
