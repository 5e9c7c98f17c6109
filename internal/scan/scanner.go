package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/dataset"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/quality"
	"github.com/banshee-data/subsea.dataset/internal/timeutil"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

// ScannerConfig holds the scanner's dependencies.
type ScannerConfig struct {
	Loader   *dataset.Loader
	Opener   video.Opener
	Analysis *config.AnalysisConfig
	Warnings *monitoring.WarningLog
	Sink     *quality.AnomalySink
	Clock    timeutil.Clock

	// State is the checkpoint to resume from; it is updated in place.
	State *State
	// Checkpoint persists State after each completed sequence. A failed
	// checkpoint aborts the scan.
	Checkpoint func(*State) error

	// First and Last bound the scanned sequence numbers; zero is unbounded.
	First int
	Last  int
}

// Summary counts what a Run did.
type Summary struct {
	Sequences int
	Frames    int
	Anomalies int
	Warnings  int
}

// Scanner checks every frame of every stream, sequence by sequence.
type Scanner struct {
	cfg      ScannerConfig
	progress *Progress
	summary  Summary

	// inflight is the byte count of the streams already finished in the
	// sequence being scanned.
	inflight int64
}

// NewScanner validates cfg and returns a scanner.
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Loader == nil || cfg.Opener == nil || cfg.Warnings == nil || cfg.Sink == nil || cfg.State == nil {
		return nil, fmt.Errorf("scanner requires a loader, opener, warning log, anomaly sink and state")
	}
	if cfg.Analysis == nil {
		cfg.Analysis = config.EmptyAnalysisConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Checkpoint == nil {
		cfg.Checkpoint = func(*State) error { return nil }
	}
	return &Scanner{cfg: cfg}, nil
}

// Summary returns the counts of the last Run.
func (s *Scanner) Summary() Summary {
	return s.summary
}

// Progress returns the progress tracker of the current or last Run.
func (s *Scanner) Progress() *Progress {
	return s.progress
}

// Pending returns the records the next Run will scan, in ascending order.
func (s *Scanner) Pending() []dataset.SequenceRecord {
	var out []dataset.SequenceRecord
	for _, rec := range s.cfg.Loader.Metadata().After(s.cfg.State.LastSequence) {
		if s.cfg.First > 0 && rec.SequenceNo < s.cfg.First {
			continue
		}
		if s.cfg.Last > 0 && rec.SequenceNo > s.cfg.Last {
			break
		}
		out = append(out, rec)
	}
	return out
}

// Run scans every pending sequence. Per-file problems are written to the
// warning log and never abort the run; a failed checkpoint, warning-log
// write or anomaly dump does. A sequence interrupted by ctx is not
// checkpointed, so the next run scans it again from the start.
func (s *Scanner) Run(ctx context.Context) error {
	st := s.cfg.State
	s.summary = Summary{}
	s.progress = NewProgress(s.cfg.Clock, s.totalBytes(), st.ProcessedBytes, st.Elapsed())
	warningsBefore := s.cfg.Warnings.Entries()
	anomaliesBefore := s.cfg.Sink.Dumped()
	defer func() {
		s.summary.Warnings = s.cfg.Warnings.Entries() - warningsBefore
		s.summary.Anomalies = s.cfg.Sink.Dumped() - anomaliesBefore
	}()

	if err := s.logRowErrors(); err != nil {
		return err
	}

	pending := s.Pending()
	monitoring.Logf("scan %s: %d sequences pending, resuming after sequence %d", st.RunID, len(pending), st.LastSequence)

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			monitoring.Logf("scan interrupted before sequence %d: %v", rec.SequenceNo, err)
			return err
		}
		points, bytes, err := s.scanSequence(ctx, rec)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			if ctx.Err() != nil {
				monitoring.Logf("scan interrupted during sequence %d, it will be scanned again: %v", rec.SequenceNo, ctx.Err())
				return ctx.Err()
			}
			return fmt.Errorf("sequence %d: %w", rec.SequenceNo, err)
		}
		s.progress.Add(bytes)
		st.Complete(rec.SequenceNo, points, bytes, s.progress.Elapsed())
		st.UpdatedAt = s.cfg.Clock.Now().UTC()
		if err := s.cfg.Checkpoint(st); err != nil {
			return err
		}
		s.summary.Sequences++
		s.progress.MaybeReport()
	}
	monitoring.Logf("scan %s complete: %s", st.RunID, s.progress)
	return nil
}

// logRowErrors writes every skipped metadata row to the warning log, once
// per scan state.
func (s *Scanner) logRowErrors() error {
	st := s.cfg.State
	if st.MetadataChecked {
		return nil
	}
	rowErrs := s.cfg.Loader.Metadata().RowErrors
	for _, fe := range rowErrs {
		if err := s.cfg.Warnings.Warnf("metadata row skipped: %v", fe); err != nil {
			return err
		}
	}
	st.MetadataChecked = true
	if len(rowErrs) == 0 {
		return nil
	}
	st.UpdatedAt = s.cfg.Clock.Now().UTC()
	return s.cfg.Checkpoint(st)
}

// totalBytes sums the video sizes of every record, skipping absent files.
func (s *Scanner) totalBytes() int64 {
	var total int64
	for _, rec := range s.cfg.Loader.Metadata().Records {
		for _, sp := range rec.Streams() {
			p, err := s.cfg.Loader.Resolve(sp.Video)
			if err != nil {
				continue
			}
			if size, err := s.cfg.Loader.Stat(p); err == nil {
				total += size
			}
		}
	}
	return total
}

func (s *Scanner) warn(rec dataset.SequenceRecord, stream string, err error) error {
	return s.cfg.Warnings.Warnf("sequence %d %s: %v", rec.SequenceNo, stream, err)
}

func (s *Scanner) scanSequence(ctx context.Context, rec dataset.SequenceRecord) (map[string]StreamPoint, int64, error) {
	points := make(map[string]StreamPoint)
	s.inflight = 0
	for _, sp := range rec.Streams() {
		point, ok, err := s.scanStream(ctx, rec, sp)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			points[sp.Name] = point
			s.inflight += point.FileSize
		}
	}
	bytes := s.inflight
	s.inflight = 0
	return points, bytes, nil
}

// scanStream analyzes one stream. ok is false when the stream was skipped
// after a logged problem.
func (s *Scanner) scanStream(ctx context.Context, rec dataset.SequenceRecord, sp dataset.StreamPaths) (StreamPoint, bool, error) {
	loader := s.cfg.Loader
	point := StreamPoint{SequenceNo: rec.SequenceNo}

	videoPath, err := loader.Resolve(sp.Video)
	if err != nil {
		return point, false, s.warn(rec, sp.Name, err)
	}
	if point.FileSize, err = loader.CheckFile(videoPath); err != nil {
		return point, false, s.warn(rec, sp.Name, err)
	}
	tsPath, err := loader.Resolve(sp.Timestamps)
	if err != nil {
		return point, false, s.warn(rec, sp.Name, err)
	}
	if _, err := loader.CheckFile(tsPath); err != nil {
		return point, false, s.warn(rec, sp.Name, err)
	}
	ts, err := loader.ReadTimestamps(tsPath)
	if err != nil {
		return point, false, s.warn(rec, sp.Name, err)
	}
	point.Duration = ts.Duration()

	src, err := s.cfg.Opener.Open(ctx, videoPath)
	if err != nil {
		if ctx.Err() != nil {
			return point, false, ctx.Err()
		}
		return point, false, s.warn(rec, sp.Name, &dataset.DecodeError{Path: videoPath, Err: err})
	}
	defer src.Close()

	th := quality.ThresholdsFor(s.cfg.Analysis, sp.Name)
	var acc quality.Accumulator
	for k := 0; ; k++ {
		if err := ctx.Err(); err != nil {
			return point, false, err
		}
		img, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A killed decoder fails like a corrupt file; only the context
			// tells them apart.
			if ctx.Err() != nil {
				return point, false, ctx.Err()
			}
			return point, false, s.warn(rec, sp.Name, &dataset.DecodeError{Path: videoPath, Err: err})
		}
		m := quality.Analyze(img)
		acc.Add(m)
		s.summary.Frames++
		s.progress.Partial(s.inflight + estimateBytes(point.FileSize, k+1, len(ts)))
		s.progress.MaybeReport()

		findings := th.Classify(m)
		if len(findings) == 0 {
			continue
		}
		ref := quality.FrameRef{
			SequenceNo: rec.SequenceNo,
			Stream:     sp.Name,
			Date:       rec.StartDate,
			Index:      k,
			Timestamp:  frameTimestamp(ts, k),
		}
		if err := s.cfg.Sink.Report(ref, img, findings); err != nil {
			return point, false, err
		}
	}

	point.Frames = acc.Count()
	point.Metrics = acc.Mean()
	if point.Frames != len(ts) {
		if err := s.cfg.Warnings.Warnf("sequence %d %s: decoded %d frames but %s lists %d timestamps",
			rec.SequenceNo, sp.Name, point.Frames, sp.Timestamps, len(ts)); err != nil {
			return point, false, err
		}
	}
	return point, true, nil
}

// frameTimestamp returns the k-th timestamp, or NaN for frames past the end
// of the series.
func frameTimestamp(ts dataset.TimestampSeries, k int) float64 {
	if k >= len(ts) {
		return math.NaN()
	}
	return ts[k]
}

// estimateBytes apportions size by decoded frames over listed frames.
func estimateBytes(size int64, decoded, listed int) int64 {
	if listed <= 0 || decoded >= listed {
		return size
	}
	return size * int64(decoded) / int64(listed)
}
