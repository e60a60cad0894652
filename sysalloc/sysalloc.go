// Package sysalloc is the bottom of the allocator's tier stack: the
// component that actually asks the operating system for memory. It
// reserves address space in large regions (at least 1 GiB by default;
// the first one may be larger when free system memory allows) and
// peels allocations off the high end of the current region,
// committing each slice with mprotect as it is handed out. Requests
// that don't fit the region strategy (bigger than the region itself)
// bypass it with one dedicated mmap.
package sysalloc

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	s "github.com/prataprc/gosettings"

	"github.com/bnclabs/gomalloc/config"
	"github.com/bnclabs/gomalloc/log"
	"github.com/bnclabs/gomalloc/sizeclass"
	"github.com/bnclabs/gomalloc/stats"
	"github.com/bnclabs/gomalloc/sysinfo"
)

// Allocator hands out page-aligned memory backed by anonymous mmap
// regions. The zero value is not usable; construct with New.
type Allocator struct {
	mu sync.Mutex

	regionStart uintptr
	regionEnd   uintptr // mutable: the bump pointer, moves toward regionStart

	minSystemAlloc int64
	minRegion      int64
	maxMmapAlloc   int64

	stats stats.Counters
}

// New returns a system allocator configured from setts, falling back
// to config.Default's region sizing when setts is nil.
func New(setts s.Settings) *Allocator {
	a := &Allocator{
		minSystemAlloc: config.MinSystemAlloc,
		minRegion:      config.MinRegion,
		maxMmapAlloc:   config.MaxMmapAlloc,
	}
	if setts != nil {
		a.minSystemAlloc = setts.Int64("sysalloc.minsystemalloc")
		a.minRegion = setts.Int64("sysalloc.minregion")
		a.maxMmapAlloc = setts.Int64("sysalloc.maxmmapalloc")
	}
	return a
}

func roundDown(n, align int64) int64 { return n &^ (align - 1) }
func roundUp(n, align int64) int64   { return roundDown(n+align-1, align) }

// Alloc reserves align-aligned memory of at least n bytes, requesting
// it from the current region's tail first and falling back to a
// fresh region (or, for requests or alignments above minRegion, one dedicated
// mmap) when that doesn't fit. Returns (0, 0) on failure.
func (a *Allocator) Alloc(n, align int64) (uintptr, int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if align < a.minSystemAlloc {
		align = a.minSystemAlloc
	}
	n = roundUp(n, a.minSystemAlloc)

	if n > a.maxMmapAlloc || align > a.maxMmapAlloc {
		log.Warnf("sysalloc: requested size too large: %d align %d", n, align)
		return 0, 0
	}

	if n > a.minRegion || align > a.minRegion {
		ptr, err := mmapAligned(n, align, true)
		if err != nil {
			log.Warnf("sysalloc: super allocation failed: n=%d align=%d: %v", n, align, err)
			return 0, 0
		}
		a.stats.AllocatedIncr(n)
		log.Infof("sysalloc: allocated a super region by mmap %d align %d", n, align)
		return ptr, n
	}

	if a.regionStart != 0 {
		if ptr, actual := a.allocFromRegion(n, align); ptr != 0 {
			return ptr, actual
		}
	}
	return a.allocFromNewRegion(n, align)
}

func (a *Allocator) allocFromRegion(n, align int64) (uintptr, int64) {
	res := uintptr(roundDown(int64(a.regionEnd)-n, align))
	if res < a.regionStart {
		return 0, 0
	}
	actual := int64(a.regionEnd - res)
	if err := mprotectCommit(res, actual); err != nil {
		return 0, 0
	}
	a.regionEnd = res
	a.stats.AllocatedIncr(actual)
	return res, actual
}

func (a *Allocator) allocFromNewRegion(n, align int64) (uintptr, int64) {
	size := a.minRegion
	if a.regionStart == 0 {
		if hinted := sysinfo.SuggestedRegion(a.minRegion, a.maxMmapAlloc); hinted > size {
			size = hinted
		}
	}
	log.Infof("sysalloc: region exhausted, reserving a new one of %d bytes", size)

	ptr, err := mmapAligned(size, size, false)
	if err != nil {
		log.Warnf("sysalloc: failed to reserve new region: %v", err)
		return 0, 0
	}
	a.regionStart = ptr
	a.regionEnd = ptr + uintptr(size)
	log.Infof("sysalloc: reserved new region [%#x, %#x)", a.regionStart, a.regionEnd)

	return a.allocFromRegion(n, align)
}

// Dealloc advises the kernel that the page-aligned portion of
// [ptr, ptr+n) is no longer needed, without unreserving the address
// space: the region's bump pointer is never moved backward, so freed
// memory inside a region is only ever reused by the page heap that
// tracks it, not by sysalloc itself.
func (a *Allocator) Dealloc(ptr uintptr, n int64) bool {
	start := uintptr(roundUp(int64(ptr), sizeclass.PageSize))
	end := uintptr(roundDown(int64(ptr)+n, sizeclass.PageSize))
	if end <= start {
		return false
	}

	a.stats.DeallocatedIncr(int64(end - start))

	for {
		err := madviseDontNeed(start, int64(end-start))
		if err == nil {
			return true
		}
		if err != unix.EAGAIN {
			log.Warnf("sysalloc: madvise failed: %v", err)
			return false
		}
	}
}

// Stats returns the allocator's running allocated/deallocated byte
// counters.
func (a *Allocator) Stats() *stats.Counters { return &a.stats }

// Shutdown logs a final accounting. There is nothing to release: the
// address space this allocator reserved stays mapped until the
// process exits, the same way the page heap's own spans are handed
// back to it rather than unmapped outright.
func (a *Allocator) Shutdown() {
	log.Infof("sysalloc: shutdown complete, %s", a.stats.String())
}

func mmapAligned(n, align int64, commit bool) (uintptr, error) {
	prot := unix.PROT_NONE
	if commit {
		prot = unix.PROT_READ | unix.PROT_WRITE
	}
	size := n + align - 1
	b, err := unix.Mmap(-1, 0, int(size), prot, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	base := uintptr(unsafe.Pointer(&b[0]))
	mask := uintptr(align) - 1
	return (base + mask) &^ mask, nil
}

func mprotectCommit(ptr uintptr, n int64) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
	return unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE)
}

func madviseDontNeed(ptr uintptr, n int64) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
	return unix.Madvise(b, unix.MADV_DONTNEED)
}
