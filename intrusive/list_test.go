package intrusive

import "testing"

type node struct {
	Elem
	id int
}

func TestPrependOrder(t *testing.T) {
	var l List
	a, b, c := &node{id: 1}, &node{id: 2}, &node{id: 3}
	byElem := map[*Elem]*node{&a.Elem: a, &b.Elem: b, &c.Elem: c}
	l.Prepend(&a.Elem)
	l.Prepend(&b.Elem)
	l.Prepend(&c.Elem)

	if x := l.Len(); x != 3 {
		t.Fatalf("expected 3, got %v", x)
	}
	got := []int{}
	for e := l.First(); e != nil; e = l.Next(e) {
		got = append(got, byElem[e].id)
	}
	want := []int{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRemoveMiddle(t *testing.T) {
	var l List
	a, b, c := &node{id: 1}, &node{id: 2}, &node{id: 3}
	l.Append(&a.Elem)
	l.Append(&b.Elem)
	l.Append(&c.Elem)

	l.Remove(&b.Elem)
	if x := l.Len(); x != 2 {
		t.Fatalf("expected 2, got %v", x)
	}
	if l.First() != &a.Elem {
		t.Fatalf("expected a at head")
	}
	if l.Next(&a.Elem) != &c.Elem {
		t.Fatalf("expected c after a")
	}
}

func TestEmptyListOperations(t *testing.T) {
	var l List
	if !l.Empty() {
		t.Fatalf("expected empty")
	}
	if l.First() != nil {
		t.Fatalf("expected nil first on empty list")
	}
}

func TestRemoveUnlinkedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var l, other List
	n := &node{id: 1}
	other.Append(&n.Elem)
	l.Remove(&n.Elem)
}
