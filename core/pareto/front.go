package pareto

// Dominates reports whether a dominates b under minimization: a is no worse
// in every objective and strictly better in at least one.
func Dominates(a, b []float64) bool {
	better := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			better = true
		}
	}
	return better
}

// Front accumulates a set of mutually non-dominated objective vectors.
type Front struct {
	points [][]float64
}

// NewFront returns an empty front.
func NewFront() *Front { return &Front{} }

// Add inserts the vector if no member dominates it, evicting members the new
// vector dominates. It reports whether the vector was kept. The slice is not
// copied; callers must not mutate it afterwards.
func (f *Front) Add(p []float64) bool {
	for _, q := range f.points {
		if Dominates(q, p) {
			return false
		}
	}
	kept := f.points[:0]
	for _, q := range f.points {
		if !Dominates(p, q) {
			kept = append(kept, q)
		}
	}
	f.points = append(kept, p)
	return true
}

// Len returns the number of members.
func (f *Front) Len() int { return len(f.points) }

// Points returns the members in insertion order. The backing slices are
// shared with the front.
func (f *Front) Points() [][]float64 { return f.points }
