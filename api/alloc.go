// Package api defines the interface a memory allocator implementation
// exposes to application code, independent of which tiering strategy
// backs it.
package api

import "unsafe"

// Allocator is the contract the root gomalloc.Allocator satisfies.
// Keeping it as a separate interface lets tests and alternative
// backends substitute for the real tiered implementation.
type Allocator interface {
	// SizeClasses lists the object sizes this allocator's caches
	// serve; requests larger than the largest entry are not served
	// (Alloc returns nil for them) and are not forwarded to the
	// system allocator.
	SizeClasses() (sizes []int64)

	// Alloc returns n bytes of memory. Allocated memory is always
	// pointer-aligned.
	Alloc(n int64) unsafe.Pointer

	// AllocClass allocates one object from the given size class
	// directly, skipping the byte-size-to-class lookup. Callers must
	// already know the class is valid for their request size.
	AllocClass(class int) unsafe.Pointer

	// ClassSize returns the object size, in bytes, of the size class
	// ptr was allocated from.
	ClassSize(ptr unsafe.Pointer) int64

	// Free returns ptr, previously obtained from Alloc or AllocClass,
	// to the allocator.
	Free(ptr unsafe.Pointer)

	// Shutdown tears the tiers down in order, logging a final
	// accounting. It does not drain thread caches: every cache must
	// already have been released, and Shutdown panics if a central
	// cache list still holds spans. Idle page heap spans are handed
	// back to the system allocator; spans still in use are left as
	// they are.
	Shutdown()

	// Info reports coarse memory accounting: bytes reserved from the
	// system, bytes currently carved into spans, bytes currently
	// allocated to callers, and bytes held as cache/bookkeeping
	// overhead.
	Info() (reserved, heap, allocated, overhead int64)

	// Utilization reports, per size class that has served at least one
	// allocation, that class's share of all allocations this allocator
	// has ever served — a traffic profile, not a live-occupancy gauge.
	Utilization() (classes []int, ratios []float64)
}
