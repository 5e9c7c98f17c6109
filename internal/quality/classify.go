package quality

import (
	"fmt"

	"github.com/banshee-data/subsea.dataset/internal/config"
)

// Flag is one anomaly classification.
type Flag int

const (
	AlmostBlack Flag = iota
	ExtremelyBright
	VeryNoisy
)

func (f Flag) String() string {
	switch f {
	case AlmostBlack:
		return "almost_black"
	case ExtremelyBright:
		return "extremely_bright"
	case VeryNoisy:
		return "very_noisy"
	}
	return fmt.Sprintf("flag(%d)", int(f))
}

// Describe is the human-readable form used in the warning log.
func (f Flag) Describe() string {
	switch f {
	case AlmostBlack:
		return "almost black"
	case ExtremelyBright:
		return "extremely bright"
	case VeryNoisy:
		return "very noisy"
	}
	return f.String()
}

// Metric names the statistic the flag is decided on.
func (f Flag) Metric() string {
	if f == VeryNoisy {
		return "entropy"
	}
	return "mean"
}

// Thresholds are one stream kind's classification limits. All comparisons
// are strict.
type Thresholds struct {
	Black  float64
	Bright float64
	Noise  float64
}

// ThresholdsFor reads a stream's thresholds from the analysis config.
func ThresholdsFor(cfg *config.AnalysisConfig, stream string) Thresholds {
	black, bright, noise := cfg.GetThresholds(stream)
	return Thresholds{Black: black, Bright: bright, Noise: noise}
}

// Finding is one raised flag and the measured value that raised it.
type Finding struct {
	Flag  Flag
	Value float64
}

// Classify returns the flags m raises, in Flag order. Flags are independent:
// a frame can be both almost black and very noisy.
func (th Thresholds) Classify(m Metrics) []Finding {
	var out []Finding
	if m.Mean < th.Black {
		out = append(out, Finding{Flag: AlmostBlack, Value: m.Mean})
	}
	if m.Mean > th.Bright {
		out = append(out, Finding{Flag: ExtremelyBright, Value: m.Mean})
	}
	if m.Entropy > th.Noise {
		out = append(out, Finding{Flag: VeryNoisy, Value: m.Entropy})
	}
	return out
}
