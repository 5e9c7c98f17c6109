package scan

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/timeutil"
)

// progressWindow is the number of recent samples the throughput is
// computed over.
const progressWindow = 8

type progressSample struct {
	at    time.Time
	bytes int64
}

// Progress tracks processed bytes against the dataset total and projects the
// remaining time from recent throughput.
type Progress struct {
	clock      timeutil.Clock
	total      int64
	done       int64
	partial    int64
	prior      time.Duration
	start      time.Time
	samples    []progressSample
	interval   time.Duration
	lastReport time.Time
}

// NewProgress starts tracking. done and prior are the bytes and time already
// accounted for by a previous run.
func NewProgress(clock timeutil.Clock, total, done int64, prior time.Duration) *Progress {
	now := clock.Now()
	return &Progress{
		clock:    clock,
		total:    total,
		done:     done,
		prior:    prior,
		start:    now,
		samples:  []progressSample{{at: now, bytes: done}},
		interval: 30 * time.Second,
	}
}

// SetInterval sets the minimum time between reports.
func (p *Progress) SetInterval(d time.Duration) {
	p.interval = d
}

// Add accounts for n more processed bytes and clears the partial estimate.
func (p *Progress) Add(n int64) {
	p.done += n
	p.partial = 0
	p.sample()
}

// Partial sets the estimated bytes processed so far of the unit in flight.
// It counts towards reports until the next Add.
func (p *Progress) Partial(n int64) {
	p.partial = n
}

func (p *Progress) sample() {
	p.samples = append(p.samples, progressSample{at: p.clock.Now(), bytes: p.current()})
	if len(p.samples) > progressWindow {
		p.samples = p.samples[len(p.samples)-progressWindow:]
	}
}

func (p *Progress) current() int64 {
	return p.done + p.partial
}

// Done returns the processed byte count of completed units.
func (p *Progress) Done() int64 {
	return p.done
}

// Elapsed returns the total scan time including previous runs.
func (p *Progress) Elapsed() time.Duration {
	return p.prior + p.clock.Since(p.start)
}

// Fraction returns the processed share of the total, in [0, 1].
func (p *Progress) Fraction() float64 {
	if p.total <= 0 {
		return 1
	}
	f := float64(p.current()) / float64(p.total)
	if f > 1 {
		return 1
	}
	return f
}

// Throughput returns bytes per second over the recent window.
func (p *Progress) Throughput() float64 {
	first, last := p.samples[0], p.samples[len(p.samples)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 {
		return 0
	}
	return float64(last.bytes-first.bytes) / dt
}

// Remaining projects the time left. ok is false until a throughput is known.
func (p *Progress) Remaining() (d time.Duration, ok bool) {
	rate := p.Throughput()
	if rate <= 0 {
		return 0, false
	}
	left := p.total - p.current()
	if left <= 0 {
		return 0, true
	}
	return time.Duration(float64(left) / rate * float64(time.Second)), true
}

func (p *Progress) String() string {
	s := fmt.Sprintf("%s / %s (%.1f%%), elapsed %s",
		humanize.Bytes(uint64(p.current())), humanize.Bytes(uint64(p.total)),
		100*p.Fraction(), p.Elapsed().Round(time.Second))
	if rate := p.Throughput(); rate > 0 {
		s += fmt.Sprintf(", %s/s", humanize.Bytes(uint64(rate)))
	}
	if left, ok := p.Remaining(); ok {
		s += fmt.Sprintf(", ~%s remaining", left.Round(time.Second))
	}
	return s
}

// MaybeReport logs the progress line when the report interval has passed.
// It returns whether a line was logged.
func (p *Progress) MaybeReport() bool {
	now := p.clock.Now()
	if !p.lastReport.IsZero() && now.Sub(p.lastReport) < p.interval {
		return false
	}
	p.lastReport = now
	if p.partial > 0 {
		p.sample()
	}
	monitoring.Logf("progress: %s", p)
	return true
}
