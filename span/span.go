// Package span implements the unit of memory the page heap hands out
// and the central cache slices into objects: a run of consecutive
// pages, tagged IDLE while it sits on a page-heap free list and USING
// once a size class has carved it up, carrying its own free list of
// not-yet-allocated objects while USING.
package span

import (
	"unsafe"

	"github.com/bnclabs/gomalloc/freelist"
	"github.com/bnclabs/gomalloc/intrusive"
	"github.com/bnclabs/gomalloc/sizeclass"
)

// Status is a span's place in its own lifecycle: IDLE spans belong to
// the page heap's free lists and may be coalesced with adjacent IDLE
// neighbors; USING spans belong to a central cache's per-class list
// and must never be coalesced while they are.
type Status int

const (
	Idle Status = iota
	Using
)

// Span is a run of Pages consecutive PageSize-byte pages starting at
// Base. A zero Span is not usable; construct with New.
type Span struct {
	intrusive.Elem

	base   uintptr
	pages  int64
	status Status
	class  int

	list      freelist.FreeList
	allocated int64
	total     int64
}

// New returns an IDLE span covering pages pages starting at base.
func New(base uintptr, pages int64) *Span {
	return &Span{base: base, pages: pages, status: Idle}
}

func (s *Span) Base() uintptr       { return s.base }
func (s *Span) SetBase(b uintptr)   { s.base = b }
func (s *Span) Pages() int64        { return s.pages }
func (s *Span) SetPages(p int64)    { s.pages = p }
func (s *Span) Status() Status      { return s.status }
func (s *Span) SetStatus(st Status) { s.status = st }

// Class is the size class this span was carved for, set once by the
// central cache when it first fetches the span from the page heap.
// Idle spans (never yet carved, or coalesced back into one) carry the
// stale class of whichever USING span they most recently were; callers
// must not read it before InitFreeList has run.
func (s *Span) Class() int     { return s.class }
func (s *Span) SetClass(c int) { s.class = c }

// StartAddr is the first byte this span covers.
func (s *Span) StartAddr() uintptr { return s.base }

// EndAddr is one past the last byte this span covers.
func (s *Span) EndAddr() uintptr {
	return s.base + uintptr(s.pages*sizeclass.PageSize)
}

// PageAddr returns the start address of the n'th page inside the span.
func (s *Span) PageAddr(n int64) uintptr {
	return s.base + uintptr(n*sizeclass.PageSize)
}

// NumBytes is the total size this span covers.
func (s *Span) NumBytes() int64 { return s.pages * sizeclass.PageSize }

// Allocated is how many objects are currently checked out of this span.
func (s *Span) Allocated() int64 { return s.allocated }

// Total is how many objects this span was carved into.
func (s *Span) Total() int64 { return s.total }

// Empty reports whether every object the span was carved into has
// been allocated — despite the name, this is the "no free objects
// left" state, matching the reference implementation's own naming.
func (s *Span) Empty() bool { return s.allocated == s.total }

// Full reports whether none of the span's objects are currently
// allocated — likewise inverted from the intuitive reading, kept to
// match the reference's `full() == (allocated == 0)`.
func (s *Span) Full() bool { return s.allocated == 0 }

// InitFreeList carves the span's byte range into objSize-byte objects
// and threads them onto the span's internal free list, replacing
// whatever list it held before. Called each time the central cache
// takes a span from the page heap and hands it a size class; the page
// heap may hand back a Span it has handed out before.
func (s *Span) InitFreeList(objSize int64) {
	start := s.StartAddr()
	end := s.EndAddr()
	s.list = freelist.FreeList{}
	s.allocated = 0
	s.total = (int64(end-start)) / objSize
	for i := int64(0); i < s.total; i++ {
		p := unsafe.Pointer(start + uintptr(i)*uintptr(objSize))
		s.list.Push(p)
	}
}

// AllocObjects pops up to len(dst) objects off the span's free list
// into dst and returns how many were actually taken.
func (s *Span) AllocObjects(dst []unsafe.Pointer) int {
	n := s.list.PopBatch(dst)
	s.allocated += int64(n)
	return n
}

// DeallocObject returns one object to the span's free list.
func (s *Span) DeallocObject(p unsafe.Pointer) {
	s.list.Push(p)
	s.allocated--
}

// List is an intrusive list of spans, the shape both the page heap's
// per-page-count buckets and the central cache's per-class buckets
// are built from.
type List struct {
	l intrusive.List
}

func (sl *List) Len() int           { return sl.l.Len() }
func (sl *List) Empty() bool        { return sl.l.Empty() }
func (sl *List) First() *Span       { return fromElem(sl.l.First()) }
func (sl *List) Next(s *Span) *Span { return fromElem(sl.l.Next(&s.Elem)) }

func (sl *List) Prepend(s *Span) { sl.l.Prepend(&s.Elem) }
func (sl *List) Append(s *Span)  { sl.l.Append(&s.Elem) }
func (sl *List) Remove(s *Span)  { sl.l.Remove(&s.Elem) }

func fromElem(e *intrusive.Elem) *Span {
	if e == nil {
		return nil
	}
	return (*Span)(unsafe.Pointer(e))
}
