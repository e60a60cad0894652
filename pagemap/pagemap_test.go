package pagemap

import (
	"testing"

	"github.com/bnclabs/gomalloc/span"
)

func TestFindSpanLocatesOwningSpan(t *testing.T) {
	var m Map
	s1 := span.New(0x1000, 2)
	s2 := span.New(0x8000, 2)
	m.Insert(s1)
	m.Insert(s2)

	if got := m.FindSpan(0x1000); got != s1 {
		t.Fatalf("expected s1 at its start address, got %v", got)
	}
	if got := m.FindSpan(s1.EndAddr() - 1); got != s1 {
		t.Fatalf("expected s1 to cover its last byte")
	}
	if got := m.FindSpan(0x8500); got != s2 {
		t.Fatalf("expected s2 to cover an address inside it")
	}
}

func TestFindSpanReturnsNilOutsideAnyRegisteredSpan(t *testing.T) {
	var m Map
	s1 := span.New(0x1000, 2)
	m.Insert(s1)

	if got := m.FindSpan(0x0500); got != nil {
		t.Fatalf("expected nil before the first span, got %v", got)
	}
	if got := m.FindSpan(s1.EndAddr()); got != nil {
		t.Fatalf("expected nil past the span's end, got %v", got)
	}
}

func TestFindPrevAndFindNext(t *testing.T) {
	var m Map
	s1 := span.New(0x1000, 2)
	s2 := span.New(s1.EndAddr(), 2)
	s3 := span.New(s2.EndAddr()+0x2000, 2) // leave a gap before s3
	m.Insert(s1)
	m.Insert(s2)
	m.Insert(s3)

	if got := m.FindPrev(s2); got != s1 {
		t.Fatalf("expected s1 immediately before s2, got %v", got)
	}
	if got := m.FindNext(s1); got != s2 {
		t.Fatalf("expected s2 immediately after s1, got %v", got)
	}
	if got := m.FindPrev(s3); got != nil {
		t.Fatalf("expected no span immediately before s3 across the gap, got %v", got)
	}
	if got := m.FindNext(s2); got != nil {
		t.Fatalf("expected no span immediately after s2 across the gap, got %v", got)
	}
}

func TestEraseRemovesRegistration(t *testing.T) {
	var m Map
	s1 := span.New(0x1000, 2)
	m.Insert(s1)
	m.Erase(s1)

	if got := m.FindSpan(0x1000); got != nil {
		t.Fatalf("expected nil after erase, got %v", got)
	}
}

func TestInsertOverwritesSameBase(t *testing.T) {
	var m Map
	s1 := span.New(0x1000, 2)
	s2 := span.New(0x1000, 4)
	m.Insert(s1)
	m.Insert(s2)

	if got := m.FindSpan(0x1000); got != s2 {
		t.Fatalf("expected second insert at the same base to replace the first, got %v", got)
	}
}
