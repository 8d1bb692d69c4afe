package pareto

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mdubois44/chargeplan/core/logger"
)

// nObjectives fixes the objective-space dimensionality: cost,
// dissatisfaction, peak power.
const nObjectives = 3

// defaultMargin pushes the derived reference point past the worst front
// member in every objective.
const defaultMargin = 0.1

// ObjectiveSummary carries one statistic per objective.
type ObjectiveSummary struct {
	Cost            float64 `json:"cost"`
	Dissatisfaction float64 `json:"dissatisfaction"`
	PeakPower       float64 `json:"peak_power"`
}

// Metrics is the quality report for one finished front. Hypervolume and
// Spacing are nil when they could not be computed; an all-zero value with
// NSolutions 0 is the empty-front outcome.
type Metrics struct {
	Hypervolume    *float64         `json:"hypervolume"`
	Spacing        *float64         `json:"spacing"`
	NSolutions     int              `json:"n_solutions"`
	Best           ObjectiveSummary `json:"best_objectives"`
	Worst          ObjectiveSummary `json:"worst_objectives"`
	Mean           ObjectiveSummary `json:"mean_objectives"`
	Std            ObjectiveSummary `json:"std_objectives"`
	ReferencePoint []float64        `json:"reference_point"`
}

// Calculator computes front-quality indicators. With an explicit RefPoint the
// hypervolume runs in raw objective space against it; with a nil RefPoint the
// front is min-max normalized first and the reference derived per column as
// max*(1+Margin). Spacing always works in normalized space.
type Calculator struct {
	RefPoint []float64
	Margin   float64
	log      logger.Logger
}

// NewCalculator returns a Calculator deriving its own reference point.
func NewCalculator(log logger.Logger) *Calculator {
	return &Calculator{Margin: defaultMargin, log: log}
}

// NewCalculatorWithRef returns a Calculator using a fixed raw-space reference
// point.
func NewCalculatorWithRef(ref []float64, log logger.Logger) *Calculator {
	return &Calculator{RefPoint: ref, Margin: defaultMargin, log: log}
}

// CalculateAll computes every indicator for the front, an n x 3 matrix of
// objective vectors. An empty front yields the zero Metrics value and no
// error; an indicator failure is logged and degrades that indicator to nil.
func (c *Calculator) CalculateAll(front [][]float64) Metrics {
	if len(front) == 0 {
		c.log.Warnf("empty pareto front, no metrics to calculate")
		return Metrics{}
	}
	for i, p := range front {
		if len(p) != nObjectives {
			c.log.Errorf("front row %d has %d objectives, want %d", i, len(p), nObjectives)
			return Metrics{}
		}
	}

	m := Metrics{NSolutions: len(front)}

	cols := columns(front)
	m.Best = summary(cols, floats.Min)
	m.Worst = summary(cols, floats.Max)
	m.Mean = summary(cols, func(xs []float64) float64 { return stat.Mean(xs, nil) })
	m.Std = summary(cols, popStd)

	normalized := Normalize(front)
	if hv, ref, err := c.hypervolume(front, normalized); err != nil {
		c.log.Warnf("hypervolume calculation failed: %v", err)
	} else {
		m.Hypervolume = &hv
		m.ReferencePoint = ref
	}

	sp := Spacing(normalized)
	m.Spacing = &sp

	return m
}

// hypervolume picks the space and reference point, then delegates to the
// exact computation. Panics inside the recursion degrade to an error.
func (c *Calculator) hypervolume(raw, normalized [][]float64) (hv float64, ref []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	points := normalized
	ref = c.RefPoint
	if ref != nil {
		points = raw
		if len(ref) != nObjectives {
			return 0, nil, fmt.Errorf("reference point has %d entries, want %d", len(ref), nObjectives)
		}
	} else {
		ref = make([]float64, nObjectives)
		for j := range ref {
			colMax := 0.0
			for _, p := range points {
				if p[j] > colMax {
					colMax = p[j]
				}
			}
			ref[j] = colMax * (1 + c.margin())
			// A flat column normalizes to zero everywhere; give the slab
			// thickness so the reference stays strictly worse.
			if ref[j] == 0 {
				ref[j] = c.margin()
			}
		}
	}
	return Hypervolume(points, ref), ref, nil
}

func (c *Calculator) margin() float64 {
	if c.Margin > 0 {
		return c.Margin
	}
	return defaultMargin
}

// Normalize rescales every objective column to [0,1] using the front's own
// extremes. A zero-range column keeps its offset removed but is not scaled,
// so it collapses to a constant zero.
func Normalize(front [][]float64) [][]float64 {
	if len(front) == 0 {
		return nil
	}
	dims := len(front[0])
	mins := make([]float64, dims)
	ranges := make([]float64, dims)
	for j := 0; j < dims; j++ {
		lo, hi := front[0][j], front[0][j]
		for _, p := range front {
			if p[j] < lo {
				lo = p[j]
			}
			if p[j] > hi {
				hi = p[j]
			}
		}
		mins[j] = lo
		ranges[j] = hi - lo
		if ranges[j] == 0 {
			ranges[j] = 1
		}
	}
	out := make([][]float64, len(front))
	for i, p := range front {
		q := make([]float64, dims)
		for j := range q {
			q[j] = (p[j] - mins[j]) / ranges[j]
		}
		out[i] = q
	}
	return out
}

// Hypervolume computes the exact volume of objective space dominated by the
// front relative to ref, by recursive slicing along the last objective.
// Points not strictly better than ref in every dimension contribute nothing
// and are discarded.
func Hypervolume(front [][]float64, ref []float64) float64 {
	var pts [][]float64
	for _, p := range front {
		ok := true
		for j := range ref {
			if p[j] >= ref[j] {
				ok = false
				break
			}
		}
		if ok {
			pts = append(pts, p)
		}
	}
	return sliceVolume(pts, ref)
}

func sliceVolume(pts [][]float64, ref []float64) float64 {
	if len(pts) == 0 {
		return 0
	}
	d := len(ref)
	switch d {
	case 1:
		lo := pts[0][0]
		for _, p := range pts[1:] {
			if p[0] < lo {
				lo = p[0]
			}
		}
		return ref[0] - lo
	case 2:
		return staircaseArea(pts, ref)
	}

	last := d - 1
	sorted := make([][]float64, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i][last] < sorted[j][last] })

	var vol float64
	for i := range sorted {
		depth := ref[last] - sorted[i][last]
		if i+1 < len(sorted) {
			depth = sorted[i+1][last] - sorted[i][last]
		}
		if depth <= 0 {
			continue
		}
		proj := make([][]float64, 0, i+1)
		for _, p := range sorted[:i+1] {
			proj = append(proj, p[:last])
		}
		vol += sliceVolume(proj, ref[:last]) * depth
	}
	return vol
}

// staircaseArea is the 2-D base case: sweep by the first objective and stack
// rectangles down to the running best of the second.
func staircaseArea(pts [][]float64, ref []float64) float64 {
	sorted := make([][]float64, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i][0] < sorted[j][0] })

	var area float64
	bestY := ref[1]
	for _, p := range sorted {
		if p[1] >= bestY {
			continue // dominated within the projection
		}
		area += (ref[0] - p[0]) * (bestY - p[1])
		bestY = p[1]
	}
	return area
}

// Spacing measures front uniformity: the population standard deviation of
// each member's nearest-neighbor Euclidean distance. Fronts of size <= 1
// have spacing 0 by convention.
func Spacing(front [][]float64) float64 {
	if len(front) <= 1 {
		return 0
	}
	dists := make([]float64, len(front))
	for i, p := range front {
		nearest := math.Inf(1)
		for j, q := range front {
			if i == j {
				continue
			}
			if d := floats.Distance(p, q, 2); d < nearest {
				nearest = d
			}
		}
		dists[i] = nearest
	}
	return popStd(dists)
}

// popStd is the population standard deviation, matching the convention the
// summary statistics are reported in.
func popStd(xs []float64) float64 {
	mean := stat.Mean(xs, nil)
	return math.Sqrt(stat.MomentAbout(2, xs, mean, nil))
}

func columns(front [][]float64) [nObjectives][]float64 {
	var cols [nObjectives][]float64
	for j := 0; j < nObjectives; j++ {
		col := make([]float64, len(front))
		for i, p := range front {
			col[i] = p[j]
		}
		cols[j] = col
	}
	return cols
}

func summary(cols [nObjectives][]float64, f func([]float64) float64) ObjectiveSummary {
	return ObjectiveSummary{
		Cost:            f(cols[0]),
		Dissatisfaction: f(cols[1]),
		PeakPower:       f(cols[2]),
	}
}
