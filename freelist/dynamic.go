package freelist

import "unsafe"

// DynamicFreeList is a FreeList that additionally tracks the quota
// bookkeeping a thread cache uses to size itself: how far the list's
// length has drifted down since it was last observed (low_water), how
// large the thread cache is currently willing to let it grow
// (max_length), and how many consecutive times an caller has hit that
// ceiling (length_overages). The thread cache package reads and
// mutates these fields directly to implement the refill/overflow
// adaptation rule; this type only keeps low_water consistent on pop.
type DynamicFreeList struct {
	FreeList

	lowWater       int64
	maxLength      int64
	lengthOverages int64
}

// NewDynamicFreeList returns a DynamicFreeList with max_length seeded
// to 1, matching the reference implementation's starting point before
// any refill has happened.
func NewDynamicFreeList() *DynamicFreeList {
	return &DynamicFreeList{maxLength: 1}
}

func (d *DynamicFreeList) LowWater() int64      { return d.lowWater }
func (d *DynamicFreeList) SetLowWater(v int64)  { d.lowWater = v }
func (d *DynamicFreeList) ClearLowWater()       { d.lowWater = d.Len() }
func (d *DynamicFreeList) MaxLength() int64     { return d.maxLength }
func (d *DynamicFreeList) SetMaxLength(v int64) { d.maxLength = v }
func (d *DynamicFreeList) MaxLengthIncr(n int64) { d.maxLength += n }
func (d *DynamicFreeList) MaxLengthDecr(n int64) { d.maxLength -= n }

func (d *DynamicFreeList) LengthOverages() int64      { return d.lengthOverages }
func (d *DynamicFreeList) SetLengthOverages(v int64)  { d.lengthOverages = v }
func (d *DynamicFreeList) LengthOveragesIncr(n int64) { d.lengthOverages += n }

// Pop removes one object, lowering low_water if the list has just
// drifted to a new minimum.
func (d *DynamicFreeList) Pop() unsafe.Pointer {
	p := d.FreeList.Pop()
	if d.Len() < d.lowWater {
		d.ClearLowWater()
	}
	return p
}

// PopBatch removes up to len(dst) objects, then applies the same
// low-water adjustment as Pop, evaluated once against the post-pop
// length.
func (d *DynamicFreeList) PopBatch(dst []unsafe.Pointer) int {
	n := d.FreeList.PopBatch(dst)
	if d.Len() < d.lowWater {
		d.ClearLowWater()
	}
	return n
}
