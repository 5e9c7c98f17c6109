package scan

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/timeutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestProgress_RemainingFromThroughput(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	p := NewProgress(clock, 1000, 0, 0)

	_, ok := p.Remaining()
	assert.False(t, ok)

	clock.Advance(10 * time.Second)
	p.Add(100)
	assert.InDelta(t, 10.0, p.Throughput(), 1e-9)
	left, ok := p.Remaining()
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, left)
	assert.InDelta(t, 0.1, p.Fraction(), 1e-9)
}

func TestProgress_ResumedElapsed(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	p := NewProgress(clock, 1000, 400, time.Minute)
	clock.Advance(5 * time.Second)
	assert.Equal(t, 65*time.Second, p.Elapsed())
	assert.Equal(t, int64(400), p.Done())
	// Bytes from the previous run do not count towards throughput.
	assert.Zero(t, p.Throughput())
}

func TestProgress_WindowTracksRecentRate(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	p := NewProgress(clock, 1<<40, 0, 0)
	// Slow start, then a fast steady rate that fills the window.
	clock.Advance(100 * time.Second)
	p.Add(1)
	for i := 0; i < progressWindow; i++ {
		clock.Advance(time.Second)
		p.Add(1000)
	}
	assert.InDelta(t, 1000.0, p.Throughput(), 1e-9)
}

func TestProgress_FractionBounds(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	assert.Equal(t, 1.0, NewProgress(clock, 0, 0, 0).Fraction())
	assert.Equal(t, 1.0, NewProgress(clock, 10, 20, 0).Fraction())
}

func TestProgress_MaybeReport(t *testing.T) {
	var lines []string
	prev := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = prev })
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	clock := timeutil.NewMockClock(epoch)
	p := NewProgress(clock, 2_000_000, 0, 0)
	p.SetInterval(time.Minute)

	assert.True(t, p.MaybeReport())
	clock.Advance(30 * time.Second)
	p.Add(1_000_000)
	assert.False(t, p.MaybeReport())
	clock.Advance(31 * time.Second)
	assert.True(t, p.MaybeReport())

	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "1.0 MB / 2.0 MB (50.0%)")
	assert.Contains(t, lines[1], "remaining")
}

func TestProgress_PartialCountsUntilAdd(t *testing.T) {
	prev := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = prev })
	monitoring.SetLogger(nil)

	clock := timeutil.NewMockClock(epoch)
	p := NewProgress(clock, 1000, 0, 0)

	clock.Advance(10 * time.Second)
	p.Partial(250)
	assert.Equal(t, 0.25, p.Fraction())
	assert.Equal(t, int64(0), p.Done())
	require.True(t, p.MaybeReport())
	assert.InDelta(t, 25.0, p.Throughput(), 1e-9)
	left, ok := p.Remaining()
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, left)

	clock.Advance(10 * time.Second)
	p.Add(400)
	assert.Equal(t, 0.4, p.Fraction())
	assert.Equal(t, int64(400), p.Done())
}
