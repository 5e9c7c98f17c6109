package align

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/subsea.dataset/internal/dataset"
)

func TestNewTimeline_StartAndLength(t *testing.T) {
	sonar := dataset.TimestampSeries{0, 0.07, 0.14}
	cam1 := dataset.TimestampSeries{0.01, 0.09}

	tl, err := NewTimeline(0.05, sonar, cam1)
	require.NoError(t, err)
	assert.InDelta(t, -0.05, tl.Start, 1e-12)
	assert.Equal(t, 4, tl.Len)
	assert.InDelta(t, 0.10, tl.Tick(3), 1e-12)
	assert.InDelta(t, 20.0, tl.FPS(), 1e-9)
}

func TestNewTimeline_UniformSpacing(t *testing.T) {
	series := dataset.TimestampSeries{1623146400.0, 1623146460.0}
	tl, err := NewTimeline(0.05, series)
	require.NoError(t, err)

	ticks := tl.Ticks()
	require.Len(t, ticks, tl.Len)
	assert.Less(t, ticks[0], series.Start())
	for i := 1; i < len(ticks); i++ {
		assert.InDelta(t, 0.05, ticks[i]-ticks[i-1], 1e-6, "tick %d", i)
	}
	assert.Less(t, ticks[len(ticks)-1], series.End()+tl.Step)
}

func TestNewTimeline_IgnoresEmptySeries(t *testing.T) {
	tl, err := NewTimeline(1, dataset.TimestampSeries{}, dataset.TimestampSeries{10, 12})
	require.NoError(t, err)
	assert.Equal(t, 9.0, tl.Start)
	assert.Equal(t, 3, tl.Len)
}

func TestNewTimeline_Errors(t *testing.T) {
	_, err := NewTimeline(0, dataset.TimestampSeries{1})
	assert.Error(t, err)
	_, err = NewTimeline(-1, dataset.TimestampSeries{1})
	assert.Error(t, err)
	_, err = NewTimeline(0.05)
	assert.Error(t, err)
	_, err = NewTimeline(0.05, dataset.TimestampSeries{})
	assert.Error(t, err)
}

func TestNewTimeline_RejectsNonFiniteSpan(t *testing.T) {
	tests := []struct {
		name   string
		series dataset.TimestampSeries
	}{
		{"nan end", dataset.TimestampSeries{0, 0.05, math.NaN()}},
		{"nan start", dataset.TimestampSeries{math.NaN(), 0.05}},
		{"inf end", dataset.TimestampSeries{0, math.Inf(1)}},
		{"-inf start", dataset.TimestampSeries{math.Inf(-1), 0}},
		{"too long", dataset.TimestampSeries{0, 1e300}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := NewTimeline(0.05, dataset.TimestampSeries{1, 2}, tt.series)
			assert.Error(t, err)
			assert.Zero(t, tl.Len)
		})
	}
}

func TestNewTimeline_SingleTimestamp(t *testing.T) {
	tl, err := NewTimeline(0.5, dataset.TimestampSeries{3})
	require.NoError(t, err)
	assert.Equal(t, 2.5, tl.Start)
	assert.Equal(t, 1, tl.Len)
}
