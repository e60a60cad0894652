// Package threadcache is the allocator's top tier: one per calling
// goroutine (or, lacking Go's equivalent of native thread-local
// storage, one per whatever scope the caller acquires and releases
// it for — see Acquire/Release below), holding a small per-class free
// list that absorbs alloc/dealloc traffic without ever touching a
// shared lock.
package threadcache

import (
	"fmt"
	"unsafe"

	s "github.com/prataprc/gosettings"

	"github.com/bnclabs/gomalloc/centralcache"
	"github.com/bnclabs/gomalloc/config"
	"github.com/bnclabs/gomalloc/freelist"
	"github.com/bnclabs/gomalloc/log"
	"github.com/bnclabs/gomalloc/sizeclass"
	"github.com/bnclabs/gomalloc/stats"
)

// checkClass panics on a class index outside the generated table, the
// same caller-contract assertion thread_cache.h makes at nearly every
// entry point.
func checkClass(class int) {
	if class <= 0 || class >= sizeclass.NumClasses {
		panic(fmt.Sprintf("threadcache: size class %d out of range [1,%d)", class, sizeclass.NumClasses))
	}
}

// Cache holds one DynamicFreeList per size class plus the adaptation
// state thread_cache.h keeps alongside them. A Cache is not safe for
// concurrent use — that is the point of it — so callers obtain one
// through Acquire and give it back through Release rather than
// sharing it across goroutines.
type Cache struct {
	lists      [sizeclass.NumClasses]*freelist.DynamicFreeList
	totalBytes int64

	cc *centralcache.Cache

	maxListObjects int64
	maxOverages    int64

	stats stats.Counters
}

// Acquire returns a thread cache that fetches from cc, configured
// from setts (or config.Default when setts is nil). Go has no
// portable thread-local storage and goroutines migrate across OS
// threads, so there is no implicit per-thread instance the way the
// reference implementation's thread_local destructor provides one:
// callers acquire a Cache explicitly, use it for as long as they keep
// it pinned to one goroutine, and must call Release before letting it
// go so its outstanding objects are drained back to the central cache.
func Acquire(cc *centralcache.Cache, setts s.Settings) *Cache {
	if setts == nil {
		setts = config.Default()
	}
	c := &Cache{
		cc:             cc,
		maxListObjects: setts.Int64("threadcache.maxlistobjects"),
		maxOverages:    setts.Int64("threadcache.maxoverages"),
	}
	for i := range c.lists {
		c.lists[i] = freelist.NewDynamicFreeList()
	}
	return c
}

// fetchFromCentralCache pulls one batch for class from the central
// cache, keeps every object past the first on this cache's list, and
// grows the list's quota the way the reference's refill rule does:
// one step at a time below batch_size, then by one batch_size at a
// time, capped at maxListObjects and snapped down to a batch_size
// multiple.
func (c *Cache) fetchFromCentralCache(class int) unsafe.Pointer {
	list := c.lists[class]
	batchSize := sizeclass.NumToMove(class)

	batch := make([]unsafe.Pointer, batchSize)
	cnt := c.cc.Alloc(class, batch)
	if cnt == 0 {
		log.Warnf("threadcache: fetch from central cache failed: class=%d 0/%d", class, batchSize)
		return nil
	}
	if int64(cnt) != batchSize {
		log.Warnf("threadcache: fetch from central cache: class=%d %d/%d", class, cnt, batchSize)
	}
	c.stats.FetchedIncr(int64(cnt))

	if cnt > 0 {
		c.totalBytes += sizeclass.Size(class) * int64(cnt)
		list.PushBatch(batch[1:cnt])
	}

	if list.MaxLength() < batchSize {
		list.SetMaxLength(list.MaxLength() + 1)
	} else {
		temp := list.MaxLength() + batchSize
		if temp > c.maxListObjects {
			temp = c.maxListObjects
		}
		temp -= temp % batchSize
		list.SetMaxLength(temp)
	}

	return batch[0]
}

// Alloc returns one object of class, popping it off the local list
// when one is on hand or fetching a fresh batch from the central
// cache otherwise.
func (c *Cache) Alloc(class int) unsafe.Pointer {
	checkClass(class)

	list := c.lists[class]

	var obj unsafe.Pointer
	if !list.Empty() {
		obj = list.Pop()
	} else {
		obj = c.fetchFromCentralCache(class)
	}

	if obj != nil {
		c.totalBytes -= sizeclass.Size(class)
		c.stats.AllocatedIncr(1)
	} else {
		log.Warnf("threadcache: allocated nil from size class %d", class)
	}
	return obj
}

// returnToCentralCache hands n objects of class back to the central
// cache, in batch_size-sized chunks (plus one short final chunk for
// the remainder).
func (c *Cache) returnToCentralCache(class int, n int64) {
	if n == 0 {
		return
	}
	batchSize := sizeclass.NumToMove(class)
	list := c.lists[class]

	if list.Len() < n {
		log.Warnf("threadcache: return request(%d) > list size(%d), class=%d", n, list.Len(), class)
		n = list.Len()
	}
	c.totalBytes -= n * sizeclass.Size(class)
	c.stats.ReturnedIncr(n)

	batch := make([]unsafe.Pointer, batchSize)
	for n >= batchSize {
		list.PopBatch(batch)
		c.cc.Dealloc(class, batch)
		n -= batchSize
	}
	if n > 0 {
		sub := batch[:n]
		list.PopBatch(sub)
		c.cc.Dealloc(class, sub)
	}
}

// listTooLong returns one batch's worth of objects to the central
// cache and applies the overflow-quota rule: shrink the list's
// ceiling by one batch once it has overflowed more than maxOverages
// times in a row while already above batch_size.
func (c *Cache) listTooLong(class int) {
	list := c.lists[class]
	batchSize := sizeclass.NumToMove(class)

	n := list.Len()
	if n > batchSize {
		n = batchSize
	}
	c.returnToCentralCache(class, n)

	switch {
	case list.MaxLength() < batchSize:
		list.MaxLengthIncr(1)
	case list.MaxLength() > batchSize:
		list.LengthOveragesIncr(1)
		if list.LengthOverages() > c.maxOverages {
			list.MaxLengthDecr(batchSize)
			list.SetLengthOverages(0)
		}
	}
}

// Dealloc returns ptr to class's local list, spilling a batch back to
// the central cache once the list grows past its current quota.
func (c *Cache) Dealloc(class int, ptr unsafe.Pointer) {
	checkClass(class)

	if ptr == nil {
		return
	}
	c.totalBytes += sizeclass.Size(class)

	list := c.lists[class]
	list.Push(ptr)
	c.stats.DeallocatedIncr(1)

	if list.Len() > list.MaxLength() {
		c.listTooLong(class)
	}
}

// Stats returns the cache's running fetched/returned/allocated/
// deallocated object counters.
func (c *Cache) Stats() *stats.Counters { return &c.stats }

// TotalBytes is how many bytes are currently sitting idle on this
// cache's lists, not yet returned to the central cache.
func (c *Cache) TotalBytes() int64 { return c.totalBytes }

// Release drains every class's list back to the central cache. Call
// this when a goroutine is done using a thread cache it Acquire'd,
// the way the reference implementation's thread_local destructor does
// automatically at thread exit.
func (c *Cache) Release() {
	total := int64(0)
	for class := 1; class < sizeclass.NumClasses; class++ {
		list := c.lists[class]
		if list.Empty() {
			continue
		}
		total += list.Len()
		c.returnToCentralCache(class, list.Len())
	}
	log.Infof("threadcache: released %d idle objects, %s", total, c.stats.String())
}
