// Package freelist implements the singly-linked free-object lists
// that back every tier of the allocator. A free object's first
// machine word is overlaid with the pointer to the next free object,
// so pushing or popping never allocates and the list costs zero bytes
// beyond the objects themselves.
package freelist

import "unsafe"

// FreeList is an intrusive singly-linked stack of free objects,
// threaded through the first word of each object. Not safe for
// concurrent use; every caller in this repository guards it with a
// tier-appropriate lock or confines it to one goroutine.
type FreeList struct {
	head unsafe.Pointer
	n    int64
}

func next(p unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(p)
}

func setNext(p, n unsafe.Pointer) {
	*(*unsafe.Pointer)(p) = n
}

// Len returns the number of objects currently on the list.
func (l *FreeList) Len() int64 { return l.n }

// Empty reports whether the list has no objects.
func (l *FreeList) Empty() bool { return l.head == nil }

// Push adds one object to the head of the list.
func (l *FreeList) Push(p unsafe.Pointer) {
	setNext(p, l.head)
	l.head = p
	l.n++
}

// Pop removes and returns the object at the head of the list, or nil
// if the list is empty.
func (l *FreeList) Pop() unsafe.Pointer {
	if l.head == nil {
		return nil
	}
	p := l.head
	l.head = next(p)
	l.n--
	return p
}

// PushBatch links batch[0..k-1] into a chain and splices it in front
// of the current head in one O(k) operation.
func (l *FreeList) PushBatch(batch []unsafe.Pointer) {
	k := len(batch)
	if k == 0 {
		return
	}
	for i := 0; i < k-1; i++ {
		setNext(batch[i], batch[i+1])
	}
	setNext(batch[k-1], l.head)
	l.head = batch[0]
	l.n += int64(k)
}

// PopBatch removes up to len(dst) objects from the head of the list
// into dst and returns how many were actually taken.
func (l *FreeList) PopBatch(dst []unsafe.Pointer) int {
	i := 0
	for i < len(dst) && l.head != nil {
		dst[i] = l.head
		l.head = next(l.head)
		i++
	}
	l.n -= int64(i)
	return i
}
