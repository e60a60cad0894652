package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// HistogramInt64 buckets a stream of int64 samples into fixed-width
// bins between from and till, with everything below from and at or
// above till folded into the two edge bins. The allocator's root
// façade uses one of these to track the distribution of allocated
// object sizes (the size class's object size, not the byte count the
// caller asked for).
type HistogramInt64 struct {
	n         int64
	minval    int64
	maxval    int64
	sum       int64
	sumsq     float64
	histogram []int64

	init  bool
	from  int64
	till  int64
	width int64
}

// NewHistogramInt64 returns a histogram covering [from, till) in
// buckets of width, both snapped down to a multiple of width.
func NewHistogramInt64(from, till, width int64) *HistogramInt64 {
	from = (from / width) * width
	till = (till / width) * width
	h := &HistogramInt64{from: from, till: till, width: width}
	h.histogram = make([]int64, 1+((till-from)/width)+1)
	return h
}

// Add records one sample.
func (h *HistogramInt64) Add(sample int64) {
	h.n++
	h.sum += sample
	f := float64(sample)
	h.sumsq += f * f
	if !h.init || sample < h.minval {
		h.minval = sample
		h.init = true
	}
	if h.maxval < sample {
		h.maxval = sample
	}

	switch {
	case sample < h.from:
		h.histogram[0]++
	case sample >= h.till:
		h.histogram[len(h.histogram)-1]++
	default:
		h.histogram[((sample-h.from)/h.width)+1]++
	}
}

func (h *HistogramInt64) Min() int64     { return h.minval }
func (h *HistogramInt64) Max() int64     { return h.maxval }
func (h *HistogramInt64) Samples() int64 { return h.n }
func (h *HistogramInt64) Sum() int64     { return h.sum }

func (h *HistogramInt64) Mean() int64 {
	if h.n == 0 {
		return 0
	}
	return int64(float64(h.sum) / float64(h.n))
}

func (h *HistogramInt64) Variance() int64 {
	if h.n == 0 {
		return 0
	}
	nF, meanF := float64(h.n), float64(h.Mean())
	return int64((h.sumsq / nF) - (meanF * meanF))
}

func (h *HistogramInt64) SD() int64 {
	if h.n == 0 {
		return 0
	}
	return int64(math.Sqrt(float64(h.Variance())))
}

// Clone returns an independent copy of the histogram.
func (h *HistogramInt64) Clone() *HistogramInt64 {
	newh := *h
	newh.histogram = make([]int64, len(h.histogram))
	copy(newh.histogram, h.histogram)
	return &newh
}

// Buckets returns cumulative counts: for every bucket boundary below
// the highest non-empty bucket, the key is that boundary and the value
// is how many samples fell below it; "+" holds the total sample count.
// An empty histogram returns an empty map.
func (h *HistogramInt64) Buckets() map[string]int64 {
	m := make(map[string]int64)
	cumm := int64(0)
	for i := len(h.histogram) - 1; i >= 0; i-- {
		if h.histogram[i] == 0 {
			continue
		}
		for j := 0; j <= i; j++ {
			v := h.histogram[j]
			key := strconv.Itoa(int(h.from + (int64(j) * h.width)))
			cumm += v
			if j == i {
				m["+"] = cumm
			} else {
				m[key] = cumm
			}
		}
		break
	}
	return m
}

// FullStats bundles the summary statistics and the bucket breakdown
// into one map, the shape the root façade's Stats reports as Sizes.
func (h *HistogramInt64) FullStats() map[string]interface{} {
	hmap := make(map[string]interface{})
	for k, v := range h.Buckets() {
		hmap[k] = v
	}
	return map[string]interface{}{
		"samples":      h.Samples(),
		"min":          h.Min(),
		"max":          h.Max(),
		"mean":         h.Mean(),
		"variance":     h.Variance(),
		"stddeviation": h.SD(),
		"histogram":    hmap,
	}
}

// LogString renders FullStats as a single loggable JSON-like line.
func (h *HistogramInt64) LogString() string {
	stats := h.FullStats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		if k == "histogram" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ss := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		ss = append(ss, fmt.Sprintf(`"%v": %v`, key, stats[key]))
	}

	histogram := stats["histogram"].(map[string]interface{})
	hkeys := make([]int, 0, len(histogram))
	for k := range histogram {
		if k == "+" {
			continue
		}
		n, _ := strconv.Atoi(k)
		hkeys = append(hkeys, n)
	}
	sort.Ints(hkeys)

	hs := make([]string, 0, len(hkeys)+1)
	for _, k := range hkeys {
		ks := strconv.Itoa(k)
		hs = append(hs, fmt.Sprintf(`"%v": %v`, ks, histogram[ks]))
	}
	if v, ok := histogram["+"]; ok {
		hs = append(hs, fmt.Sprintf(`"+": %v`, v))
	}
	ss = append(ss, fmt.Sprintf(`"histogram": {%v}`, strings.Join(hs, ",")))

	return "{" + strings.Join(ss, ",") + "}"
}
