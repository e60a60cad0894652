package stats

import "math"

// AverageInt64 computes a running mean, min/max, and variance over a
// stream of int64 samples without retaining them.
type AverageInt64 struct {
	n      int64
	minval int64
	maxval int64
	sum    int64
	sumsq  float64
	init   bool
}

// Add records one sample.
func (av *AverageInt64) Add(sample int64) {
	av.n++
	av.sum += sample
	f := float64(sample)
	av.sumsq += f * f
	if !av.init || sample < av.minval {
		av.minval = sample
		av.init = true
	}
	if av.maxval < sample {
		av.maxval = sample
	}
}

func (av *AverageInt64) Min() int64     { return av.minval }
func (av *AverageInt64) Max() int64     { return av.maxval }
func (av *AverageInt64) Samples() int64 { return av.n }
func (av *AverageInt64) Sum() int64     { return av.sum }

func (av *AverageInt64) Mean() int64 {
	if av.n == 0 {
		return 0
	}
	return int64(float64(av.sum) / float64(av.n))
}

func (av *AverageInt64) Variance() float64 {
	if av.n == 0 {
		return 0
	}
	nf, meanf := float64(av.n), float64(av.Mean())
	return (av.sumsq / nf) - (meanf * meanf)
}

func (av *AverageInt64) SD() float64 {
	if av.n == 0 {
		return 0
	}
	return math.Sqrt(av.Variance())
}

// Clone returns an independent copy of the running average.
func (av *AverageInt64) Clone() *AverageInt64 {
	cp := *av
	return &cp
}

// Stats renders the running average as a map for quick inspection.
func (av *AverageInt64) Stats() map[string]interface{} {
	return map[string]interface{}{
		"samples":     av.Samples(),
		"min":         av.Min(),
		"max":         av.Max(),
		"mean":        av.Mean(),
		"variance":    av.Variance(),
		"stddeviation": av.SD(),
	}
}
