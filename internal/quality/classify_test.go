package quality

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/subsea.dataset/internal/config"
)

func TestThresholds_Classify(t *testing.T) {
	th := Thresholds{Black: 15, Bright: 230, Noise: 7.6}
	tests := []struct {
		name string
		m    Metrics
		want []Finding
	}{
		{"normal", Metrics{Mean: 100, Entropy: 5}, nil},
		{"mean equal to black is not flagged", Metrics{Mean: 15, Entropy: 5}, nil},
		{"just below black", Metrics{Mean: 14.999, Entropy: 5}, []Finding{{AlmostBlack, 14.999}}},
		{"mean equal to bright is not flagged", Metrics{Mean: 230, Entropy: 5}, nil},
		{"just above bright", Metrics{Mean: 230.001, Entropy: 5}, []Finding{{ExtremelyBright, 230.001}}},
		{"entropy equal to noise is not flagged", Metrics{Mean: 100, Entropy: 7.6}, nil},
		{"noisy", Metrics{Mean: 100, Entropy: 7.7}, []Finding{{VeryNoisy, 7.7}}},
		{"black and noisy", Metrics{Mean: 3, Entropy: 7.9}, []Finding{{AlmostBlack, 3}, {VeryNoisy, 7.9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, th.Classify(tt.m)); diff != "" {
				t.Errorf("Classify mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestThresholdsFor_Defaults(t *testing.T) {
	cfg := config.EmptyAnalysisConfig()
	assert.Equal(t, Thresholds{Black: 2, Bright: 150, Noise: 7.5}, ThresholdsFor(cfg, config.StreamSonar))
	assert.Equal(t, Thresholds{Black: 15, Bright: 230, Noise: 7.6}, ThresholdsFor(cfg, config.StreamCamera1))
}

func TestFlag_Strings(t *testing.T) {
	assert.Equal(t, "almost_black", AlmostBlack.String())
	assert.Equal(t, "extremely bright", ExtremelyBright.Describe())
	assert.Equal(t, "entropy", VeryNoisy.Metric())
	assert.Equal(t, "mean", AlmostBlack.Metric())
	assert.Equal(t, "flag(9)", Flag(9).String())
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator
	assert.Equal(t, Metrics{}, acc.Mean())

	acc.Add(Metrics{Mean: 10, Variance: 4, Entropy: 1})
	acc.Add(Metrics{Mean: 20, Variance: 8, Entropy: 3})
	assert.Equal(t, 2, acc.Count())
	assert.Equal(t, Metrics{Mean: 15, Variance: 6, Entropy: 2}, acc.Mean())
}
