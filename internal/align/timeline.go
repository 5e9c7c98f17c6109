// Package align resamples independently timestamped frame streams onto one
// uniform timeline using sample-and-hold.
package align

import (
	"fmt"
	"math"

	"github.com/banshee-data/subsea.dataset/internal/dataset"
)

// Timeline is a uniformly spaced sequence of Len ticks starting at Start.
// Ticks are computed from their index, never accumulated, so the spacing is
// exactly Step for every pair.
type Timeline struct {
	Start float64
	Step  float64
	Len   int
}

// maxTicks bounds a timeline's length.
const maxTicks = math.MaxInt32

// NewTimeline covers the union of the given series. It starts one step
// before the earliest timestamp and stops before the latest one, as a
// half-open numeric range [Start, maxEnd). Empty series are ignored.
func NewTimeline(step float64, series ...dataset.TimestampSeries) (Timeline, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return Timeline{}, fmt.Errorf("invalid timeline step %v", step)
	}
	start, end := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		start = math.Min(start, s.Start())
		end = math.Max(end, s.End())
	}
	if math.IsInf(start, 1) {
		return Timeline{}, fmt.Errorf("no timestamps to build a timeline from")
	}
	if !finite(start) || !finite(end) {
		return Timeline{}, fmt.Errorf("timestamps span [%v, %v] is not finite", start, end)
	}
	start -= step
	ticks := math.Ceil((end - start) / step)
	if !finite(ticks) || ticks > maxTicks {
		return Timeline{}, fmt.Errorf("timeline of %.0f ticks at step %v is too long", ticks, step)
	}
	n := int(ticks)
	if n < 0 {
		n = 0
	}
	return Timeline{Start: start, Step: step, Len: n}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Tick returns the k-th tick.
func (tl Timeline) Tick(k int) float64 {
	return tl.Start + float64(k)*tl.Step
}

// Ticks returns every tick in ascending order.
func (tl Timeline) Ticks() []float64 {
	out := make([]float64, tl.Len)
	for k := range out {
		out[k] = tl.Tick(k)
	}
	return out
}

// FPS is the playback rate that shows one tick per step of recorded time.
func (tl Timeline) FPS() float64 {
	return 1 / tl.Step
}
