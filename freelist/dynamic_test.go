package freelist

import "testing"

func TestDynamicFreeListDefaults(t *testing.T) {
	d := NewDynamicFreeList()
	if d.MaxLength() != 1 {
		t.Fatalf("expected initial max_length 1, got %v", d.MaxLength())
	}
	if d.LowWater() != 0 || d.LengthOverages() != 0 {
		t.Fatalf("expected zeroed low_water/length_overages")
	}
}

func TestDynamicFreeListLowWaterTracksMinimum(t *testing.T) {
	d := NewDynamicFreeList()
	objs := newObjects(4)
	d.PushBatch(objs)
	d.SetLowWater(10) // force a drop below low_water on first pop

	d.Pop()
	if d.LowWater() != d.Len() {
		t.Fatalf("expected low_water cleared to current size, got %v want %v", d.LowWater(), d.Len())
	}
}

func TestDynamicFreeListMaxLengthAdjustment(t *testing.T) {
	d := NewDynamicFreeList()
	d.MaxLengthIncr(8)
	if d.MaxLength() != 9 {
		t.Fatalf("expected 9, got %v", d.MaxLength())
	}
	d.MaxLengthDecr(8)
	if d.MaxLength() != 1 {
		t.Fatalf("expected 1, got %v", d.MaxLength())
	}
}

func TestDynamicFreeListLengthOverages(t *testing.T) {
	d := NewDynamicFreeList()
	d.LengthOveragesIncr(1)
	d.LengthOveragesIncr(1)
	if d.LengthOverages() != 2 {
		t.Fatalf("expected 2, got %v", d.LengthOverages())
	}
	d.SetLengthOverages(0)
	if d.LengthOverages() != 0 {
		t.Fatalf("expected reset to 0")
	}
}
