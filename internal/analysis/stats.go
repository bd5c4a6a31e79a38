package analysis

import (
	"math"
	"sort"
)

// welford accumulates count, mean and variance in one pass.
type welford struct {
	n        int
	mean     float64
	m2       float64
	min, max float64
}

func (w *welford) add(x float64) {
	w.n++
	if w.n == 1 || x < w.min {
		w.min = x
	}
	if w.n == 1 || x > w.max {
		w.max = x
	}
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// std is the sample standard deviation (n-1). It is 0 below two points.
func (w *welford) std() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var w welford
	for _, v := range vals {
		w.add(v)
	}
	return w.mean
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// argmax tracks grouped sums; ties resolve to the first key seen.
type argmax struct {
	order []string
	sums  map[string]float64
}

func (a *argmax) add(key string, v float64) {
	if a.sums == nil {
		a.sums = map[string]float64{}
	}
	if _, ok := a.sums[key]; !ok {
		a.order = append(a.order, key)
	}
	a.sums[key] += v
}

func (a *argmax) top() string {
	best, bestV := NotAvailable, math.Inf(-1)
	for _, k := range a.order {
		if v := a.sums[k]; v > bestV {
			best, bestV = k, v
		}
	}
	return best
}
