package threadcache

import (
	"testing"
	"unsafe"

	"github.com/bnclabs/gomalloc/centralcache"
	"github.com/bnclabs/gomalloc/pageheap"
	"github.com/bnclabs/gomalloc/sysalloc"
)

func newTestCache() *Cache {
	heap := pageheap.New(sysalloc.New(nil))
	cc := centralcache.New(heap)
	return Acquire(cc, nil)
}

func TestAllocFetchesFromCentralCacheOnFirstUse(t *testing.T) {
	c := newTestCache()
	class := 1

	p := c.Alloc(class)
	if p == nil {
		t.Fatalf("expected a non-nil object")
	}
}

func TestAllocReturnsFreedObjectAgain(t *testing.T) {
	c := newTestCache()
	class := 1

	first := c.Alloc(class)
	c.Dealloc(class, first)

	second := c.Alloc(class)
	if second != first {
		t.Fatalf("expected the freed object to be reused, got a different pointer")
	}
}

func TestMaxLengthGrowsTowardBatchSizeOnRefill(t *testing.T) {
	c := newTestCache()
	class := 1

	if got := c.lists[class].MaxLength(); got != 1 {
		t.Fatalf("expected the freshly constructed list to start at max_length=1, got %d", got)
	}

	c.Alloc(class)
	if got := c.lists[class].MaxLength(); got <= 1 {
		t.Fatalf("expected max_length to grow after the first refill, got %d", got)
	}
}

func TestDeallocSpillsBatchWhenListExceedsMaxLength(t *testing.T) {
	c := newTestCache()
	class := 1
	list := c.lists[class]
	list.SetMaxLength(1)

	abuf := make([]byte, 8)
	bbuf := make([]byte, 8)
	a := unsafe.Pointer(&abuf[0])
	b := unsafe.Pointer(&bbuf[0])
	c.Dealloc(class, a)
	if list.Len() != 1 {
		t.Fatalf("expected 1 object on the list, got %d", list.Len())
	}
	c.Dealloc(class, b)
	if list.Len() > list.MaxLength() {
		t.Fatalf("expected the overflow path to have spilled the list back down, got len=%d max=%d", list.Len(), list.MaxLength())
	}
}

func TestReleaseDrainsAllClasses(t *testing.T) {
	c := newTestCache()
	class := 1

	p := c.Alloc(class)
	c.Dealloc(class, p)

	c.Release()
	if !c.lists[class].Empty() {
		t.Fatalf("expected Release to drain every class's list")
	}
}
