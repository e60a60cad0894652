// Package centralcache is the allocator's shared middle tier: one
// span list and mutex per size class, drained and refilled in
// batches by thread caches above it and topped up from the page heap
// below it when a class runs dry.
package centralcache

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/bnclabs/gomalloc/log"
	"github.com/bnclabs/gomalloc/pageheap"
	"github.com/bnclabs/gomalloc/sizeclass"
	"github.com/bnclabs/gomalloc/span"
	"github.com/bnclabs/gomalloc/stats"
)

// checkClass panics on a class index outside the generated table,
// the same caller-contract assertion central_cache.h makes at nearly
// every entry point.
func checkClass(class int) {
	if class <= 0 || class >= sizeclass.NumClasses {
		panic(fmt.Sprintf("centralcache: size class %d out of range [1,%d)", class, sizeclass.NumClasses))
	}
}

// checkBatch panics on a batch larger than any size class is ever
// configured to move in one transfer.
func checkBatch(n int) {
	if n > sizeclass.MaxMove {
		panic(fmt.Sprintf("centralcache: batch size %d exceeds MaxMove %d", n, sizeclass.MaxMove))
	}
}

// Cache holds one span list and one lock per size class. Class 0 is
// the unused sentinel sizeclass.classes reserves and is never touched.
type Cache struct {
	lists [sizeclass.NumClasses]span.List
	mus   [sizeclass.NumClasses]sync.Mutex

	heap *pageheap.Heap

	stats stats.Counters
}

// New returns a central cache that fetches spans from heap.
func New(heap *pageheap.Heap) *Cache {
	return &Cache{heap: heap}
}

// fetchObjects drains batch[total:n] from class's span list, removing
// any span that has nothing left to give once it has been drained.
func (c *Cache) fetchObjects(class int, batch []unsafe.Pointer, n int) int {
	list := &c.lists[class]
	total := 0
	for !list.Empty() && total != n {
		s := list.First()
		got := s.AllocObjects(batch[total:n])
		if s.Empty() {
			list.Remove(s)
		}
		total += got
	}
	return total
}

// fetchFromPageHeap tops a class up with fresh spans from the page
// heap until it can satisfy n more objects (or the page heap is
// exhausted), then drains the newly added spans the same way
// fetchObjects always does.
func (c *Cache) fetchFromPageHeap(class int, batch []unsafe.Pointer, n int) int {
	pages := sizeclass.Pages(class)
	objSize := sizeclass.Size(class)

	fetched := 0
	for fetched < n {
		s := c.heap.Alloc(pages)
		if s == nil {
			log.Warnf("centralcache: fetch a nil span from page heap, class=%d", class)
			break
		}
		c.stats.FetchedIncr(s.Pages())

		s.InitFreeList(objSize)
		s.SetClass(class)
		c.lists[class].Prepend(s)

		fetched += int(s.Total())
	}

	return c.fetchObjects(class, batch, n)
}

// Alloc fills batch with up to len(batch) objects of class, draining
// what the span list already has before falling back to the page
// heap, and returns how many were actually filled in.
func (c *Cache) Alloc(class int, batch []unsafe.Pointer) int {
	checkClass(class)
	checkBatch(len(batch))

	n := len(batch)
	if n == 0 {
		return 0
	}

	c.mus[class].Lock()
	defer c.mus[class].Unlock()

	total := c.fetchObjects(class, batch, n)
	if total != n {
		total += c.fetchFromPageHeap(class, batch[total:], n-total)
		if total != n {
			log.Warnf("centralcache: fetch object: request %d actual %d, class=%d", n, total, class)
		}
	}

	c.stats.AllocatedIncr(int64(total))
	return total
}

// returnToPageHeap removes s from class's list and hands it back to
// the page heap. Called only once s has nothing allocated out of it.
func (c *Cache) returnToPageHeap(class int, s *span.Span) {
	if s == nil {
		return
	}
	if s.Allocated() != 0 {
		log.Errorf("centralcache: returning a non-empty span %d/%d, class=%d", s.Allocated(), s.Total(), class)
	}
	c.stats.ReturnedIncr(s.Pages())
	c.lists[class].Remove(s)
	c.heap.Dealloc(s)
}

// Dealloc returns each pointer in batch to the span that owns it,
// re-listing a span the moment it gains its first free object and
// handing it back to the page heap the moment it has none allocated.
func (c *Cache) Dealloc(class int, batch []unsafe.Pointer) {
	checkClass(class)
	checkBatch(len(batch))

	if len(batch) == 0 {
		return
	}

	c.mus[class].Lock()
	defer c.mus[class].Unlock()

	for _, ptr := range batch {
		s := c.heap.FindSpan(uintptr(ptr))
		if s == nil {
			log.Errorf("centralcache: can't find span when releasing %p, class=%d", ptr, class)
			continue
		}
		c.stats.DeallocatedIncr(1)

		if s.Empty() {
			c.lists[class].Prepend(s)
		}
		s.DeallocObject(ptr)
		if s.Full() {
			c.returnToPageHeap(class, s)
		}
	}
}

// Stats returns the cache's running fetched/returned/allocated/
// deallocated counters, measured in pages for fetched/returned and
// objects for allocated/deallocated.
func (c *Cache) Stats() *stats.Counters { return &c.stats }

// Shutdown asserts every class's span list is empty and logs a
// summary. A non-empty list means some thread cache never released
// the objects it was holding before shutdown began — a caller-
// contract violation, not a condition this tier can recover from.
func (c *Cache) Shutdown() {
	for class := 1; class < sizeclass.NumClasses; class++ {
		if !c.lists[class].Empty() {
			panic(fmt.Sprintf("centralcache: class %d still has spans on shutdown", class))
		}
	}
	log.Infof("centralcache: %s", c.stats.String())
}
