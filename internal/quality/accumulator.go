package quality

// Accumulator averages frame metrics over one stream of one sequence.
type Accumulator struct {
	n   int
	sum Metrics
}

// Add includes one frame's metrics.
func (a *Accumulator) Add(m Metrics) {
	a.n++
	a.sum.Mean += m.Mean
	a.sum.Variance += m.Variance
	a.sum.Entropy += m.Entropy
}

// Count returns the number of frames added.
func (a *Accumulator) Count() int {
	return a.n
}

// Mean returns the per-field average, or zero metrics when nothing was added.
func (a *Accumulator) Mean() Metrics {
	if a.n == 0 {
		return Metrics{}
	}
	n := float64(a.n)
	return Metrics{
		Mean:     a.sum.Mean / n,
		Variance: a.sum.Variance / n,
		Entropy:  a.sum.Entropy / n,
	}
}
