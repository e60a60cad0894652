// Package stats implements the relaxed atomic counters every cache
// tier keeps for its own fetched/returned/allocated/deallocated
// traffic, plus a running sample average used for reporting.
package stats

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Counters tracks how many pages or objects a tier has fetched from
// (or returned to) the tier below it, and how many objects it has
// allocated to (or accepted back from) the tier above it. All fields
// are updated with plain atomic adds: Go's atomic package has no
// explicit memory-order selector, so the ordinary operations are the
// relaxed-ordering reading of the reference counters they replace.
type Counters struct {
	fetched     int64
	returned    int64
	allocated   int64
	deallocated int64
}

func (c *Counters) Fetched() int64     { return atomic.LoadInt64(&c.fetched) }
func (c *Counters) Returned() int64    { return atomic.LoadInt64(&c.returned) }
func (c *Counters) Allocated() int64   { return atomic.LoadInt64(&c.allocated) }
func (c *Counters) Deallocated() int64 { return atomic.LoadInt64(&c.deallocated) }

func (c *Counters) FetchedIncr(n int64)     { atomic.AddInt64(&c.fetched, n) }
func (c *Counters) ReturnedIncr(n int64)    { atomic.AddInt64(&c.returned, n) }
func (c *Counters) AllocatedIncr(n int64)   { atomic.AddInt64(&c.allocated, n) }
func (c *Counters) DeallocatedIncr(n int64) { atomic.AddInt64(&c.deallocated, n) }

// String renders the counters with human-readable byte suffixes,
// assuming the caller is counting bytes; callers counting bare object
// or page counts should format those themselves instead.
func (c *Counters) String() string {
	return fmt.Sprintf(
		"fetched=%s returned=%s allocated=%s deallocated=%s",
		humanize.Bytes(uint64(c.Fetched())),
		humanize.Bytes(uint64(c.Returned())),
		humanize.Bytes(uint64(c.Allocated())),
		humanize.Bytes(uint64(c.Deallocated())),
	)
}
