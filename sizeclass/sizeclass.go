// Package sizeclass builds and serves the per-size-class static
// record table every other tier consults to turn a requested byte
// count into a class index, and a class index back into the
// object size, span page count, and batch-transfer size that class
// uses. The table is an external static input in spirit: its exact
// numeric contents are generated, not transcribed from any vendor's
// published constants, but every invariant a caller may rely on
// (monotonic size, bounded waste, num_to_move ceiling) holds
// regardless of how it was generated.
package sizeclass

import "fmt"

const (
	// PageShift/PageSize mirror the page granularity the page heap
	// carves spans in.
	PageShift = 13
	PageSize  = 1 << PageShift

	// MaxSize is the largest request this allocator's caches will
	// ever serve; ClassOf panics on anything larger, and no path
	// forwards such requests to the system allocator.
	MaxSize = 262144

	// largeSizeThreshold is the boundary below which classes are
	// spaced on an 8-byte alignment and above which they are spaced
	// on a 128-byte alignment, matching a pointer-width-aligned small
	// side and a page-fraction-aligned large side.
	largeSizeThreshold = 1024
	smallAlignment     = 8
	largeAlignment     = 128
	minObjectSize      = smallAlignment

	// NumClasses is the size of the generated table, index 0 held
	// unused by convention so that a zeroed class index is never
	// mistaken for a real one; Size/Pages/NumToMove/MaxCapacity all
	// panic on class 0 or out of range, rather than trusting callers.
	NumClasses = 85

	// MaxMove bounds how many objects a single batch transfer between
	// a thread cache and the central cache may ever carry.
	MaxMove = 128
)

// Class is one row of the per-size-class static record.
type Class struct {
	Size        int64
	Pages       int64
	NumToMove   int64
	MaxCapacity int64
}

var classes [NumClasses]Class

func init() {
	classes = buildClasses()
}

// align maps a byte count onto the alignment boundary its bucket
// uses, the same two-piece rule the reference size map applies before
// a table lookup.
func align(n int64) int64 {
	if n <= largeSizeThreshold {
		return ((n + smallAlignment - 1) / smallAlignment) * smallAlignment
	}
	return ((n + largeAlignment - 1) / largeAlignment) * largeAlignment
}

// buildClasses generates a monotonically increasing table from
// minObjectSize up to MaxSize, growing each step by the teacher's own
// utilization-target rule (see the Blocksizes growth formula this is
// adapted from) and snapping every candidate onto its bucket's
// alignment. Not every aligned size is a table entry (48 is followed
// by 64), so ClassOf searches for the smallest entry at or above an
// aligned request.
func buildClasses() [NumClasses]Class {
	const utilization = 0.92

	nextSize := func(from int64) int64 {
		addBy := int64(float64(from) * (1.0 - utilization))
		step := smallAlignment
		if from > largeSizeThreshold {
			step = largeAlignment
		}
		if addBy < int64(step) {
			addBy = int64(step)
		}
		addBy -= addBy % int64(step)
		size := from + addBy
		for float64(from+size)/2.0/float64(size) > utilization {
			size += addBy
		}
		return align(size)
	}

	var out [NumClasses]Class
	size := int64(minObjectSize)
	for i := 1; i < NumClasses; i++ {
		if i == NumClasses-1 {
			size = MaxSize
		}
		out[i] = Class{
			Size:        size,
			Pages:       pagesFor(size),
			NumToMove:   numToMoveFor(size),
			MaxCapacity: maxCapacityFor(size),
		}
		size = nextSize(size)
		if size > MaxSize {
			size = MaxSize
		}
	}
	return out
}

// pagesFor picks the smallest span page count that wastes less than
// one object's worth of space at the tail and carries a handful of
// objects per span, so tiny classes don't spend a whole page on
// bookkeeping overhead for one object.
func pagesFor(objSize int64) int64 {
	const minObjectsPerSpan = 8
	pages := int64(1)
	for (pages*PageSize)/objSize < minObjectsPerSpan && pages*PageSize < objSize*64 {
		pages++
	}
	if pages*PageSize < objSize {
		pages = (objSize + PageSize - 1) / PageSize
	}
	return pages
}

// numToMoveFor gives small objects a large batch transfer (amortizing
// lock acquisition) and large objects a small one (bounding how much
// memory a single refill pins in a thread cache), clamped to MaxMove.
func numToMoveFor(objSize int64) int64 {
	n := (32 * 1024) / objSize
	if n > MaxMove {
		n = MaxMove
	}
	if n < 2 {
		n = 2
	}
	return n
}

// maxCapacityFor is the ceiling a thread cache's adaptation rule
// grows a class's free list toward before batching stops helping;
// four refill batches is generous headroom without pinning unbounded
// memory in an idle thread cache.
func maxCapacityFor(objSize int64) int64 {
	capacity := numToMoveFor(objSize) * 4
	if capacity < 8 {
		capacity = 8
	}
	return capacity
}

// ClassOf returns the size class that should serve a request of n
// bytes. Panics if n exceeds MaxSize; callers are expected to route
// such requests directly to the system allocator instead.
func ClassOf(n int64) int {
	if n > MaxSize {
		panic(fmt.Sprintf("sizeclass: %d exceeds max cached size %d", n, MaxSize))
	}
	if n < minObjectSize {
		n = minObjectSize
	}
	n = align(n)

	lo, hi := 1, NumClasses-1
	for lo < hi {
		mid := (lo + hi) / 2
		if classes[mid].Size < n {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// checkClass panics if class is not a valid index into the generated
// table — callers hand this in from a central/thread-cache entry
// point, never from a value this package itself computed, so it is
// a caller-contract violation rather than a recoverable condition.
func checkClass(class int) {
	if class <= 0 || class >= NumClasses {
		panic(fmt.Sprintf("sizeclass: class %d out of range [1,%d)", class, NumClasses))
	}
}

// Size returns the object size a class serves.
func Size(class int) int64 { checkClass(class); return classes[class].Size }

// Pages returns how many pages a span for this class is carved from.
func Pages(class int) int64 { checkClass(class); return classes[class].Pages }

// NumToMove returns the batch size used to transfer objects of this
// class between a thread cache and the central cache.
func NumToMove(class int) int64 { checkClass(class); return classes[class].NumToMove }

// MaxCapacity returns the ceiling a thread cache's free list for this
// class is allowed to grow toward.
func MaxCapacity(class int) int64 { checkClass(class); return classes[class].MaxCapacity }
