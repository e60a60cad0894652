// Package config centralizes the tunables every tier of the
// allocator reads at construction time, wrapping
// github.com/prataprc/gosettings the way the teacher's own
// Defaultsettings helpers do for their subsystems.
package config

import (
	"fmt"

	s "github.com/prataprc/gosettings"
)

const (
	// MinSystemAlloc is the smallest unit the system allocator ever
	// asks the OS for.
	MinSystemAlloc = int64(2) << 20 // 2 MiB

	// MinRegion is the size floor of a region reservation peeled from
	// the high end as spans are carved off it. Later regions reserve
	// exactly this much; the first may be larger when free system
	// memory allows (see sysinfo.SuggestedRegion).
	MinRegion = int64(1) << 30 // 1 GiB

	// MaxMmapAlloc bounds both a single request size and its
	// alignment; anything past this is refused outright.
	MaxMmapAlloc = int64(1) << 46

	// MaxListObjects bounds how large a thread cache's per-class
	// free list is ever allowed to grow.
	MaxListObjects = int64(8192)

	// MaxOverages is how many consecutive overflow events a thread
	// cache tolerates before shrinking a class's quota.
	MaxOverages = int64(3)
)

// Default returns the settings every allocator construction starts
// from before any caller overrides are mixed in.
func Default() s.Settings {
	return s.Settings{
		"sysalloc.minsystemalloc":    MinSystemAlloc,
		"sysalloc.minregion":         MinRegion,
		"sysalloc.maxmmapalloc":      MaxMmapAlloc,
		"threadcache.maxlistobjects": MaxListObjects,
		"threadcache.maxoverages":    MaxOverages,
		"log.level":                  "info",
		"log.file":                   "",
	}
}

// Validate checks the handful of invariants spec.md binds the tuning
// knobs to, panicking the way the teacher's own Defaultsettings does
// on an inconsistent minblock/maxblock pair.
func Validate(setts s.Settings) {
	if setts.Int64("sysalloc.minregion") > setts.Int64("sysalloc.maxmmapalloc") {
		panic(fmt.Errorf("sysalloc.minregion > sysalloc.maxmmapalloc"))
	}
	if setts.Int64("threadcache.maxoverages") < 1 {
		panic(fmt.Errorf("threadcache.maxoverages must be >= 1"))
	}
}
