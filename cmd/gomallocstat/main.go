// Command gomallocstat prints the allocator's size-class table and,
// optionally, runs a small synthetic workload through it and reports
// the resulting tier-by-tier statistics.
package main

import (
	"flag"
	"fmt"
	"unsafe"

	"github.com/bnclabs/gomalloc"
	"github.com/bnclabs/gomalloc/sizeclass"
	"github.com/bnclabs/gomalloc/sysinfo"
)

var options struct {
	workload int
	size     int64
}

func argParse() {
	flag.IntVar(&options.workload, "workload", 0,
		"number of alloc/free pairs to run before printing stats")
	flag.Int64Var(&options.size, "size", 128,
		"object size, in bytes, used by -workload")
	flag.Parse()
}

func main() {
	argParse()
	tellsizeclasses()
	if options.workload > 0 {
		tellworkload()
	}
	tellsysinfo()
}

func tellsizeclasses() {
	fmt.Printf("%4s %10s %6s %10s %12s\n", "cls", "size", "pages", "nummove", "maxcap")
	for class := 1; class < sizeclass.NumClasses; class++ {
		fmt.Printf(
			"%4d %10d %6d %10d %12d\n",
			class, sizeclass.Size(class), sizeclass.Pages(class),
			sizeclass.NumToMove(class), sizeclass.MaxCapacity(class),
		)
	}
	fmt.Printf("%d size classes total\n", sizeclass.NumClasses-1)
}

func tellworkload() {
	a := gomalloc.New()
	defer a.Shutdown()

	c := a.NewCache()
	defer c.Release()

	class := sizeclass.ClassOf(options.size)
	ptrs := make([]unsafe.Pointer, 0, options.workload)
	for i := 0; i < options.workload; i++ {
		ptrs = append(ptrs, c.Alloc(class))
	}
	for _, p := range ptrs {
		c.Dealloc(class, p)
	}

	snap := a.Stats()
	fmt.Printf("reserved=%v heap=%v allocated=%v overhead=%v\n",
		snap.Reserved, snap.Heap, snap.Allocated, snap.Overhead)
	fmt.Println("sysalloc:", snap.SysAlloc)
	fmt.Println("pageheap:", snap.PageHeap)
	fmt.Println("centralcache:", snap.CentralCache)
}

func tellsysinfo() {
	mem, err := sysinfo.GetMem()
	if err != nil {
		fmt.Println("sysinfo unavailable:", err)
		return
	}
	fmt.Printf("system memory: total=%v used=%v free=%v\n", mem.Total, mem.Used, mem.Free)
}
