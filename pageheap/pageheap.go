// Package pageheap is the allocator's middle tier: it hands the
// central cache runs of consecutive pages (spans), carving them out
// of larger idle spans or fetching fresh ones from the system
// allocator, and coalesces adjacent idle spans back together as the
// central cache returns them.
package pageheap

import (
	"sync"

	"github.com/bnclabs/gomalloc/log"
	"github.com/bnclabs/gomalloc/pagemap"
	"github.com/bnclabs/gomalloc/sizeclass"
	"github.com/bnclabs/gomalloc/span"
	"github.com/bnclabs/gomalloc/stats"
	"github.com/bnclabs/gomalloc/sysalloc"
)

// numSizedLists is the number of page-heap free lists that hold
// spans of exactly one page count each; a span of more pages than
// this lands in the large list instead of growing the array further.
const numSizedLists = 128

// numLists is numSizedLists plus the one large-span bucket.
const numLists = numSizedLists + 1

// Heap tracks idle spans bucketed by page count (spans of
// numSizedLists pages or fewer get their own bucket; anything bigger
// shares the last one) and the address-ordered map used to find a
// span's neighbors when coalescing.
type Heap struct {
	mu sync.Mutex

	lists [numLists]span.List
	pm    pagemap.Map

	sa *sysalloc.Allocator

	stats stats.Counters
}

// New returns a page heap that fetches fresh spans from sa.
func New(sa *sysalloc.Allocator) *Heap {
	return &Heap{sa: sa}
}

func listIndex(pages int64) int {
	if pages > numSizedLists {
		return numSizedLists
	}
	return int(pages) - 1
}

func (h *Heap) addToList(s *span.Span) { h.lists[listIndex(s.Pages())].Prepend(s) }
func (h *Heap) removeFromList(s *span.Span) {
	h.lists[listIndex(s.Pages())].Remove(s)
}

// createSpan builds a Span over [ptr, ptr+pages*PageSize), registers
// it in the page map, and either adds it to the matching idle list or
// marks it USING, depending on status.
func (h *Heap) createSpan(ptr uintptr, pages int64, status span.Status) *span.Span {
	s := span.New(ptr, pages)
	h.pm.Insert(s)
	if status == span.Idle {
		h.addToList(s)
	} else {
		s.SetStatus(span.Using)
	}
	return s
}

// destroySpan unregisters s from the page map and its list, leaving
// the underlying memory untouched; callers either hand the memory to
// a different span (carve) or return it to the system (returnToSystem).
func (h *Heap) destroySpan(s *span.Span) {
	h.pm.Erase(s)
	h.removeFromList(s)
}

// carve splits off the last n pages of s (or returns s itself, when
// it is already exactly n pages), marks the result USING, and leaves
// any remainder on the idle lists.
func (h *Heap) carve(s *span.Span, n int64) *span.Span {
	h.removeFromList(s)
	if s.Pages() == n {
		s.SetStatus(span.Using)
		return s
	}

	remaining := s.Pages() - n
	s.SetPages(remaining)
	h.addToList(s)

	return h.createSpan(s.PageAddr(remaining), n, span.Using)
}

func (h *Heap) fetchFromSystem(n int64) *span.Span {
	ptr, actual := h.sa.Alloc(n*sizeclass.PageSize, sizeclass.PageSize)
	if ptr == 0 {
		log.Warnf("pageheap: fetch from system failed: %d pages", n)
		return nil
	}
	h.stats.FetchedIncr(actual)
	return h.createSpan(ptr, actual/sizeclass.PageSize, span.Idle)
}

func (h *Heap) returnToSystem(s *span.Span) {
	if s == nil {
		return
	}
	h.stats.ReturnedIncr(s.NumBytes())

	start, bytes := s.StartAddr(), s.NumBytes()
	h.destroySpan(s)
	h.sa.Dealloc(start, bytes)
}

func (h *Heap) findFromLarge(n int64) *span.Span {
	list := &h.lists[numSizedLists]
	for s := list.First(); s != nil; s = list.Next(s) {
		if s.Pages() >= n {
			return s
		}
	}
	return nil
}

// Alloc returns a USING span of exactly n pages, carved from an idle
// span already on hand or fetched fresh from the system allocator.
// Returns nil if the system allocator cannot satisfy the request.
func (h *Heap) Alloc(n int64) *span.Span {
	h.mu.Lock()
	defer h.mu.Unlock()

	var s *span.Span
	for i := int(n) - 1; i < numSizedLists; i++ {
		if !h.lists[i].Empty() {
			s = h.lists[i].First()
			break
		}
	}
	if s == nil {
		s = h.findFromLarge(n)
	}
	if s == nil {
		s = h.fetchFromSystem(n)
	}
	if s == nil {
		return nil
	}

	h.stats.AllocatedIncr(n)
	return h.carve(s, n)
}

// Dealloc marks span idle, coalesces it with any idle neighbor on
// either side, and returns the (possibly larger) result to the
// matching free list.
func (h *Heap) Dealloc(s *span.Span) {
	if s.Status() != span.Using {
		panic("pageheap: dealloc of a span that is not USING")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.DeallocatedIncr(s.Pages())

	s.SetStatus(span.Idle)
	h.pm.Erase(s)

	if prev := h.pm.FindPrev(s); prev != nil && prev.Status() == span.Idle {
		s.SetBase(prev.Base())
		s.SetPages(s.Pages() + prev.Pages())
		h.destroySpan(prev)
	}

	if next := h.pm.FindNext(s); next != nil && next.Status() == span.Idle {
		s.SetPages(s.Pages() + next.Pages())
		h.destroySpan(next)
	}

	h.addToList(s)
	h.pm.Insert(s)
}

// FindSpan returns the span covering ptr, or nil if ptr is not inside
// any span registered in the page map (idle or USING). The central cache
// uses this to turn a raw returned pointer back into the span (and
// size class) it belongs to.
func (h *Heap) FindSpan(ptr uintptr) *span.Span {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pm.FindSpan(ptr)
}

// SpanCount returns how many spans the page map currently has
// registered — every span this heap has ever created and not yet
// returned to the system, whether idle on one of its own lists or
// checked out USING by a central cache.
func (h *Heap) SpanCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pm.Len()
}

// Stats returns the heap's running fetched/returned/allocated/
// deallocated counters, measured in bytes for fetched/returned and
// pages for allocated/deallocated.
func (h *Heap) Stats() *stats.Counters { return &h.stats }

// Shutdown returns every idle span still held to the system allocator.
// It does not touch spans currently checked out as USING; callers are
// expected to have drained the tiers above before calling this.
func (h *Heap) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for i := range h.lists {
		list := &h.lists[i]
		for !list.Empty() {
			s := list.First()
			total++
			h.returnToSystem(s)
		}
	}
	log.Infof("pageheap: released %d idle spans, %s", total, h.stats.String())
}
