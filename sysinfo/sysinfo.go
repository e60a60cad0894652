// Package sysinfo reports host memory pressure, consulted by the
// system allocator when sizing its first region reservation and by
// the gomallocstat CLI for its summary output.
package sysinfo

import sigar "github.com/cloudfoundry/gosigar"

// Mem is a snapshot of system memory in bytes.
type Mem struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// GetMem queries the current host's memory usage.
func GetMem() (Mem, error) {
	m := sigar.Mem{}
	if err := m.Get(); err != nil {
		return Mem{}, err
	}
	return Mem{Total: m.Total, Used: m.Used, Free: m.Free}, nil
}

// SuggestedRegion picks an initial region reservation size: half of
// free memory, clamped between min and max, and rounded down to a
// multiple of min. Used only to size the very first region; every
// later region still reserves exactly min bytes regardless of host
// memory, matching the fixed-size peeling the reference implementation
// does unconditionally.
func SuggestedRegion(min, max int64) int64 {
	m, err := GetMem()
	if err != nil || m.Free == 0 {
		return min
	}
	candidate := int64(m.Free) / 2
	if candidate < min {
		return min
	}
	if candidate > max {
		candidate = max
	}
	return candidate - (candidate % min)
}
