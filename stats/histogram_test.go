package stats

import "testing"

func TestHistogramBucketing(t *testing.T) {
	h := NewHistogramInt64(0, 100, 10)
	for _, s := range []int64{-5, 3, 15, 15, 99, 150} {
		h.Add(s)
	}

	if h.Samples() != 6 {
		t.Fatalf("expected 6 samples, got %v", h.Samples())
	}
	if h.Min() != -5 || h.Max() != 150 {
		t.Fatalf("unexpected min/max: %v/%v", h.Min(), h.Max())
	}

	buckets := h.Buckets()
	if buckets["+"] != 6 {
		t.Fatalf("expected cumulative total 6 at top bucket, got %v", buckets["+"])
	}
}

func TestHistogramCloneIndependent(t *testing.T) {
	h := NewHistogramInt64(0, 100, 10)
	h.Add(5)
	clone := h.Clone()
	clone.Add(50)

	if h.Samples() == clone.Samples() {
		t.Fatalf("expected clone to diverge after mutation")
	}
}

func TestHistogramLogString(t *testing.T) {
	h := NewHistogramInt64(0, 100, 10)
	h.Add(42)
	if s := h.LogString(); s == "" {
		t.Fatalf("expected non-empty log string")
	}
}
