package gomalloc

import (
	"testing"
	"unsafe"

	"github.com/bnclabs/gomalloc/sizeclass"
)

func TestAllocAndFreeRoundTrip(t *testing.T) {
	a := New()
	defer a.Shutdown()

	p := a.Alloc(128)
	if p == nil {
		t.Fatalf("expected a non-nil allocation")
	}
	if got := a.ClassSize(p); got < 128 {
		t.Fatalf("expected class size to cover the request, got %d", got)
	}
	a.Free(p)
}

func TestAllocClassBypassesSizeLookup(t *testing.T) {
	a := New()
	defer a.Shutdown()

	class := sizeclass.ClassOf(64)
	p := a.AllocClass(class)
	if p == nil {
		t.Fatalf("expected a non-nil allocation")
	}
	a.Free(p)
}

func TestFreeOfUnrecognizedPointerIsIgnored(t *testing.T) {
	a := New()
	defer a.Shutdown()

	bogus := unsafe.Pointer(uintptr(0xdeadbeef))
	a.Free(bogus)
}

func TestNewCacheAllowsDirectClassAllocation(t *testing.T) {
	a := New()
	defer a.Shutdown()

	c := a.NewCache()
	defer c.Release()

	class := sizeclass.ClassOf(256)
	p := c.Alloc(class)
	if p == nil {
		t.Fatalf("expected a non-nil allocation")
	}
	c.Dealloc(class, p)
}

func TestUtilizationReflectsClassesUsed(t *testing.T) {
	a := New()
	defer a.Shutdown()

	class := sizeclass.ClassOf(512)
	p := a.AllocClass(class)
	defer a.Free(p)

	classes, ratios := a.Utilization()
	if len(classes) == 0 {
		t.Fatalf("expected at least one class reported")
	}
	found := false
	for i, c := range classes {
		if c == class {
			found = true
			if ratios[i] <= 0 {
				t.Fatalf("expected a positive ratio for the used class")
			}
		}
	}
	if !found {
		t.Fatalf("expected the allocated class to appear in utilization")
	}
}

func TestStatsSnapshotIsConsistent(t *testing.T) {
	a := New()
	defer a.Shutdown()

	p := a.Alloc(100)
	snap := a.Stats()
	if snap.Allocated <= 0 {
		t.Fatalf("expected positive allocated bytes, got %d", snap.Allocated)
	}
	a.Free(p)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	a := New(WithMinRegion(4<<20), WithMinSystemAlloc(1<<16))
	defer a.Shutdown()

	p := a.Alloc(64)
	if p == nil {
		t.Fatalf("expected allocation to succeed with overridden settings")
	}
}
