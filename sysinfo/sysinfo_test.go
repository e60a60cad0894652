package sysinfo

import "testing"

func TestGetMemReturnsPlausibleValues(t *testing.T) {
	m, err := GetMem()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Total == 0 {
		t.Fatalf("expected a non-zero total system memory reading")
	}
	if m.Used+m.Free > m.Total*2 {
		t.Fatalf("used+free wildly inconsistent with total: %+v", m)
	}
}

func TestSuggestedRegionRespectsBounds(t *testing.T) {
	const min, max = int64(1) << 20, int64(1) << 40
	got := SuggestedRegion(min, max)
	if got < min || got > max {
		t.Fatalf("expected region within [%d, %d], got %d", min, max, got)
	}
	if got%min != 0 {
		t.Fatalf("expected region to be a multiple of min, got %d", got)
	}
}
