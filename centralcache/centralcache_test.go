package centralcache

import (
	"testing"
	"unsafe"

	"github.com/bnclabs/gomalloc/pageheap"
	"github.com/bnclabs/gomalloc/sysalloc"
)

func newTestCache() *Cache {
	heap := pageheap.New(sysalloc.New(nil))
	return New(heap)
}

func TestAllocFetchesFromPageHeapOnFirstUse(t *testing.T) {
	c := newTestCache()
	class := 1 // smallest non-sentinel class

	batch := make([]unsafe.Pointer, 8)
	got := c.Alloc(class, batch)
	if got != len(batch) {
		t.Fatalf("expected %d objects, got %d", len(batch), got)
	}
	for _, p := range batch {
		if p == nil {
			t.Fatalf("expected every slot filled")
		}
	}
}

func TestDeallocReturnsObjectsAndReclaimsEmptySpan(t *testing.T) {
	c := newTestCache()
	class := 1

	batch := make([]unsafe.Pointer, 8)
	if got := c.Alloc(class, batch); got != len(batch) {
		t.Fatalf("expected a full batch, got %d", got)
	}

	c.Dealloc(class, batch)

	// freeing every object handed the span back to the page heap, so
	// re-allocating the same count must fetch it from there again.
	batch2 := make([]unsafe.Pointer, 8)
	if got := c.Alloc(class, batch2); got != len(batch2) {
		t.Fatalf("expected reused objects to satisfy the second batch, got %d", got)
	}
}

func TestDeallocOfUnknownPointerIsIgnored(t *testing.T) {
	c := newTestCache()
	class := 1

	var bogus unsafe.Pointer = unsafe.Pointer(uintptr(0xdeadbeef))
	c.Dealloc(class, []unsafe.Pointer{bogus})
}
