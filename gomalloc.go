// Package gomalloc implements a tiered memory allocator in the
// tcmalloc tradition: callers route through a thread cache, which is
// topped up in batches by a central cache, which is topped up in
// whole pages by a page heap, which in turn carves its spans out of
// large regions reserved directly from the operating system.
//
// Most callers should acquire their own *threadcache.Cache with
// NewCache and hold onto it for the lifetime of their work — that is
// the tier this design is built to make fast. Allocator.Alloc and
// Allocator.Free exist for occasional or one-off use; each call
// acquires and releases a throwaway thread cache, paying the central
// cache's lock on every call.
package gomalloc

import (
	"sync/atomic"
	"unsafe"

	s "github.com/prataprc/gosettings"

	"github.com/bnclabs/gomalloc/api"
	"github.com/bnclabs/gomalloc/centralcache"
	"github.com/bnclabs/gomalloc/config"
	"github.com/bnclabs/gomalloc/log"
	"github.com/bnclabs/gomalloc/pageheap"
	"github.com/bnclabs/gomalloc/sizeclass"
	"github.com/bnclabs/gomalloc/span"
	"github.com/bnclabs/gomalloc/stats"
	"github.com/bnclabs/gomalloc/sysalloc"
	"github.com/bnclabs/gomalloc/threadcache"
)

// Option overrides one of the default settings config.Default starts
// a new Allocator from.
type Option func(s.Settings) s.Settings

func withSetting(key string, value interface{}) Option {
	return func(setts s.Settings) s.Settings {
		return setts.Mixin(map[string]interface{}{key: value})
	}
}

// WithMinSystemAlloc overrides the smallest unit the system allocator
// ever asks the OS for.
func WithMinSystemAlloc(n int64) Option { return withSetting("sysalloc.minsystemalloc", n) }

// WithMinRegion overrides the size floor of a region reservation.
func WithMinRegion(n int64) Option { return withSetting("sysalloc.minregion", n) }

// WithMaxMmapAlloc overrides the largest single request or alignment
// the system allocator will ever attempt.
func WithMaxMmapAlloc(n int64) Option { return withSetting("sysalloc.maxmmapalloc", n) }

// WithMaxListObjects overrides how large a thread cache's per-class
// free list is ever allowed to grow.
func WithMaxListObjects(n int64) Option { return withSetting("threadcache.maxlistobjects", n) }

// WithMaxOverages overrides how many consecutive overflow events a
// thread cache tolerates before shrinking a class's quota.
func WithMaxOverages(n int64) Option { return withSetting("threadcache.maxoverages", n) }

// WithLogLevel overrides the golog level the allocator logs at.
func WithLogLevel(level string) Option { return withSetting("log.level", level) }

// Allocator is a process-wide instance of the tiered pipeline: one
// system allocator, one page heap, one central cache shared by every
// thread cache that acquires from it.
type Allocator struct {
	setts s.Settings

	sysalloc *sysalloc.Allocator
	heap     *pageheap.Heap
	cc       *centralcache.Cache

	sizes     stats.HistogramInt64
	liveBytes int64
	classHits [sizeclass.NumClasses]int64
}

var _ api.Allocator = (*Allocator)(nil)

// New builds the System-Allocator/Page-Heap/Central-Cache trio,
// configured from config.Default plus any opts.
func New(opts ...Option) *Allocator {
	setts := config.Default()
	for _, opt := range opts {
		setts = opt(setts)
	}
	config.Validate(setts)
	log.SetLogger(nil, setts)

	sa := sysalloc.New(setts)
	heap := pageheap.New(sa)
	cc := centralcache.New(heap)

	return &Allocator{
		setts:    setts,
		sysalloc: sa,
		heap:     heap,
		cc:       cc,
		sizes:    *stats.NewHistogramInt64(0, sizeclass.MaxSize, sizeclass.MaxSize/64),
	}
}

// NewCache acquires a thread-cache handle bound to this allocator's
// central cache. Callers must call Release on it once done — see the
// threadcache package doc for why Go has no implicit equivalent.
func (a *Allocator) NewCache() *threadcache.Cache {
	return threadcache.Acquire(a.cc, a.setts)
}

// SizeClasses returns the byte size of every size class, in class
// order (class 0's unused sentinel included).
func (a *Allocator) SizeClasses() []int64 {
	out := make([]int64, sizeclass.NumClasses)
	for i := 1; i < len(out); i++ {
		out[i] = sizeclass.Size(i)
	}
	return out
}

// Alloc returns a pointer to at least n usable bytes, or nil if the
// underlying system allocator is exhausted. Returns nil if n exceeds
// sizeclass.MaxSize — this design has no large-object path that
// forwards such requests to the system allocator.
func (a *Allocator) Alloc(n int64) unsafe.Pointer {
	if n > sizeclass.MaxSize {
		return nil
	}
	return a.AllocClass(sizeclass.ClassOf(n))
}

// AllocClass returns one object from the given size class directly,
// skipping the byte-size-to-class lookup for callers that already
// know their class (e.g. a data structure that always allocates one
// fixed node size).
func (a *Allocator) AllocClass(class int) unsafe.Pointer {
	c := a.NewCache()
	defer c.Release()

	ptr := c.Alloc(class)
	if ptr != nil {
		size := sizeclass.Size(class)
		a.sizes.Add(size)
		atomic.AddInt64(&a.liveBytes, size)
		atomic.AddInt64(&a.classHits[class], 1)
	}
	return ptr
}

// ClassSize returns the object size, in bytes, of the size class ptr
// was allocated from, looked up by address rather than trusted from
// the caller. Returns 0 if no span covers ptr.
func (a *Allocator) ClassSize(ptr unsafe.Pointer) int64 {
	sp := a.heap.FindSpan(uintptr(ptr))
	if sp == nil {
		return 0
	}
	return sizeclass.Size(sp.Class())
}

// Free returns ptr to the allocator. A ptr this allocator never
// handed out is logged and otherwise ignored, the same lookup-miss
// handling centralcache.Dealloc applies internally.
func (a *Allocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	sp := a.heap.FindSpan(uintptr(ptr))
	if sp == nil {
		log.Errorf("gomalloc: free of unrecognized pointer %p", ptr)
		return
	}

	c := a.NewCache()
	defer c.Release()
	c.Dealloc(sp.Class(), ptr)
	atomic.AddInt64(&a.liveBytes, -sizeclass.Size(sp.Class()))
}

// Info reports coarse memory accounting, all in bytes:
// reserved is every byte the system allocator has ever committed from
// the OS; heap is how much of that is still reserved rather than
// handed back (fetched minus returned); allocated is how much is
// currently checked out through AllocClass/Alloc and not yet freed;
// overhead is this design's own bookkeeping cost, approximated as one
// span.Span per page-map entry.
func (a *Allocator) Info() (reserved, heap, allocated, overhead int64) {
	reserved = a.sysalloc.Stats().Allocated()
	heap = a.heap.Stats().Fetched() - a.heap.Stats().Returned()
	allocated = atomic.LoadInt64(&a.liveBytes)
	overhead = int64(a.heap.SpanCount()) * int64(unsafe.Sizeof(span.Span{}))
	return reserved, heap, allocated, overhead
}

// Utilization reports, for every size class that has served at least
// one allocation, that class's share of all allocations ever made
// through Alloc/AllocClass — not live occupancy (no component tracks
// per-class live counts without adding a lock to the hot path), but
// which classes this process's traffic actually exercises.
func (a *Allocator) Utilization() (classes []int, ratios []float64) {
	total := int64(0)
	for _, hits := range a.classHits {
		total += hits
	}
	if total == 0 {
		return nil, nil
	}
	for class, hits := range a.classHits {
		if hits == 0 {
			continue
		}
		classes = append(classes, class)
		ratios = append(ratios, float64(hits)/float64(total))
	}
	return classes, ratios
}

// Stats is a snapshot of the counters every tier keeps, plus the
// allocation-size histogram, for diagnostics and the CLI report tool.
type Stats struct {
	Reserved, Heap, Allocated, Overhead int64
	SysAlloc, PageHeap, CentralCache    string
	Sizes                               map[string]interface{}
}

// Stats returns a point-in-time snapshot across every tier.
func (a *Allocator) Stats() Stats {
	reserved, heap, allocated, overhead := a.Info()
	return Stats{
		Reserved:     reserved,
		Heap:         heap,
		Allocated:    allocated,
		Overhead:     overhead,
		SysAlloc:     a.sysalloc.Stats().String(),
		PageHeap:     a.heap.Stats().String(),
		CentralCache: a.cc.Stats().String(),
		Sizes:        a.sizes.FullStats(),
	}
}

// Shutdown drains every tier in the order the concurrency model
// requires: central cache must be empty of checked-out thread caches
// before the page heap can safely release spans, and the page heap
// must have released everything before the system allocator tears
// down its regions.
func (a *Allocator) Shutdown() {
	a.cc.Shutdown()
	a.heap.Shutdown()
	a.sysalloc.Shutdown()
}
