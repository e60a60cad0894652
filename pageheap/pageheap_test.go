package pageheap

import (
	"testing"

	"github.com/bnclabs/gomalloc/span"
	"github.com/bnclabs/gomalloc/sysalloc"
)

func newTestHeap() *Heap {
	// A real region reservation is a virtual-memory-only mmap (PROT_NONE,
	// nothing committed), so using the unmodified 1 GiB default here costs
	// no physical memory and keeps this test exercising the same sizing
	// path production code takes.
	return New(sysalloc.New(nil))
}

func TestAllocReturnsExactPageCount(t *testing.T) {
	h := newTestHeap()
	sp := h.Alloc(3)
	if sp == nil {
		t.Fatalf("expected a non-nil span")
	}
	if sp.Pages() != 3 {
		t.Fatalf("expected exactly 3 pages, got %d", sp.Pages())
	}
	if sp.Status() != span.Using {
		t.Fatalf("expected the carved span to be marked USING")
	}
}

func TestDeallocCoalescesAdjacentIdleSpans(t *testing.T) {
	h := newTestHeap()

	a := h.Alloc(2)
	b := h.Alloc(2)
	if a == nil || b == nil {
		t.Fatalf("expected both allocations to succeed")
	}

	h.Dealloc(a)
	h.Dealloc(b)

	merged := h.Alloc(4)
	if merged == nil {
		t.Fatalf("expected a 4-page span to be available after coalescing")
	}
	if merged.Pages() != 4 {
		t.Fatalf("expected the coalesced span to cover 4 pages, got %d", merged.Pages())
	}
}

func TestCarveLeavesRemainderOnIdleList(t *testing.T) {
	h := newTestHeap()

	big := h.Alloc(10)
	h.Dealloc(big)

	small := h.Alloc(3)
	if small == nil {
		t.Fatalf("expected a 3-page span to be carved from the idle 10-page span")
	}

	rest := h.Alloc(7)
	if rest == nil {
		t.Fatalf("expected the 7-page remainder to still be available")
	}
}

func TestShutdownReturnsIdleSpansWithoutTouchingUsingSpans(t *testing.T) {
	h := newTestHeap()

	idle := h.Alloc(2)
	h.Dealloc(idle)

	using := h.Alloc(2)
	_ = using

	h.Shutdown()
}
