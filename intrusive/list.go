// Package intrusive implements a generic doubly-linked list whose
// elements embed their own prev/next links, so unlinking a known
// element never requires a scan.
package intrusive

// Elem is embedded by any type that wants to live on a List. Zero
// value is not linked to anything.
type Elem struct {
	prev, next *Elem
	list       *List
}

// Linked reports whether this element currently belongs to a list.
func (e *Elem) Linked() bool {
	return e.list != nil
}

// List is a circular doubly-linked list with a sentinel root node, the
// shape the reference implementation uses so every operation, empty
// list included, shares the same code path.
type List struct {
	root Elem
	n    int
}

// a zero List is already a valid empty list: the sentinel links to
// itself lazily on first use instead of requiring a constructor.
func (l *List) lazyInit() {
	if l.root.next == nil {
		l.root.next = &l.root
		l.root.prev = &l.root
	}
}

// Len returns the number of elements on the list.
func (l *List) Len() int { return l.n }

// Empty reports whether the list has no elements.
func (l *List) Empty() bool { return l.n == 0 }

// First returns the element at the head of the list, or nil.
func (l *List) First() *Elem {
	l.lazyInit()
	if l.root.next == &l.root {
		return nil
	}
	return l.root.next
}

// Prepend inserts e at the head of the list. e must not already be
// linked to any list.
func (l *List) Prepend(e *Elem) {
	l.lazyInit()
	e.prev = &l.root
	e.next = l.root.next
	l.root.next.prev = e
	l.root.next = e
	e.list = l
	l.n++
}

// Append inserts e at the tail of the list.
func (l *List) Append(e *Elem) {
	l.lazyInit()
	e.next = &l.root
	e.prev = l.root.prev
	l.root.prev.next = e
	l.root.prev = e
	e.list = l
	l.n++
}

// Remove unlinks e from l. Panics if e is not currently linked to l
// (unlinked, or linked to a different list).
func (l *List) Remove(e *Elem) {
	if e.list != l {
		panic("intrusive: element not linked to this list")
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next, e.list = nil, nil, nil
	l.n--
}

// Next returns the element following e on its list, or nil at the tail.
func (l *List) Next(e *Elem) *Elem {
	if e.next == &l.root {
		return nil
	}
	return e.next
}
