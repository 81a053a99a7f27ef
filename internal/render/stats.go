package render

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// maxBins bounds the histogram when the Freedman-Diaconis width collapses.
const maxBins = 1000

// histogram bins xs with the numpy "auto" rule: the smaller of the Sturges and
// Freedman-Diaconis bin widths. A constant sample gets one unit-wide bin.
func histogram(xs []float64) (edges []float64, counts []int) {
	s := sortedCopy(xs)
	n := len(s)
	if n == 0 {
		return nil, nil
	}
	lo, hi := s[0], s[n-1]
	if lo == hi {
		return []float64{lo - 0.5, hi + 0.5}, []int{n}
	}
	span := hi - lo
	width := span / (math.Log2(float64(n)) + 1)
	iqr := quantile(s, 0.75) - quantile(s, 0.25)
	if fd := 2 * iqr * math.Pow(float64(n), -1.0/3.0); fd > 0 && fd < width {
		width = fd
	}
	bins := int(math.Ceil(span / width))
	if bins < 1 {
		bins = 1
	} else if bins > maxBins {
		bins = maxBins
	}
	step := span / float64(bins)
	edges = make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*step
	}
	edges[bins] = hi
	counts = make([]int, bins)
	for _, x := range s {
		i := int((x - lo) / step)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	return edges, counts
}

// kde evaluates a Gaussian kernel density estimate with Scott's bandwidth on
// an even grid over [lo, hi]. It returns nil when the bandwidth is undefined.
func kde(xs []float64, lo, hi float64, points int) (grid, density []float64) {
	n := len(xs)
	if n < 2 || points < 2 {
		return nil, nil
	}
	sd, err := stats.StandardDeviationSample(xs)
	if err != nil || sd == 0 || math.IsNaN(sd) {
		return nil, nil
	}
	bw := sd * math.Pow(float64(n), -0.2)
	norm := 1 / (float64(n) * bw * math.Sqrt(2*math.Pi))
	grid = make([]float64, points)
	density = make([]float64, points)
	for i := range grid {
		x := lo + (hi-lo)*float64(i)/float64(points-1)
		sum := 0.0
		for _, xi := range xs {
			u := (x - xi) / bw
			sum += math.Exp(-0.5 * u * u)
		}
		grid[i] = x
		density[i] = sum * norm
	}
	return grid, density
}

// boxStats summarizes one group for a box plot.
type boxStats struct {
	Q1, Median, Q3 float64
	Low, High      float64 // whisker ends
	Fliers         []float64
}

// summarizeBox computes linear-interpolated quartiles and 1.5 IQR whiskers
// that end at the most extreme values inside the fences.
func summarizeBox(xs []float64) (boxStats, bool) {
	s := sortedCopy(xs)
	if len(s) == 0 {
		return boxStats{}, false
	}
	b := boxStats{Q1: quantile(s, 0.25), Median: quantile(s, 0.5), Q3: quantile(s, 0.75)}
	iqr := b.Q3 - b.Q1
	loFence, hiFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.Low, b.High = b.Q1, b.Q3
	for _, x := range s {
		if x < loFence || x > hiFence {
			b.Fliers = append(b.Fliers, x)
			continue
		}
		if x < b.Low {
			b.Low = x
		}
		if x > b.High {
			b.High = x
		}
	}
	return b, true
}

func sortedCopy(xs []float64) []float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return s
}

// quantile interpolates linearly between closest ranks of a sorted sample.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// niceTicks returns round tick values covering [lo, hi] with about n steps.
func niceTicks(lo, hi float64, n int) []float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		hi = lo + 1
	}
	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if raw <= m*mag {
			step = m * mag
			break
		}
	}
	start := math.Ceil(lo/step-1e-9) * step
	var out []float64
	for v := start; v <= hi+step*1e-9; v += step {
		if math.Abs(v) < step*1e-9 {
			v = 0
		}
		out = append(out, v)
	}
	return out
}
