package align

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/banshee-data/subsea.dataset/internal/dataset"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

// Stream is one input to the aligner. Width and Height size the placeholder
// shown before the first frame is decoded.
type Stream struct {
	Name       string
	Timestamps dataset.TimestampSeries
	Source     video.FrameSource
	Width      int
	Height     int
}

// Cursor is the read position of one stream. Index counts consumed
// timestamps and never decreases.
type Cursor struct {
	Index       int
	Frame       *image.Gray
	Placeholder bool
	Exhausted   bool
}

type streamState struct {
	Stream
	cursor Cursor
	err    error
}

// Aligner yields, for each tick, the most recent frame of every stream whose
// timestamp is strictly before the tick.
type Aligner struct {
	timeline Timeline
	streams  []*streamState
	lastTick float64
	queried  bool
}

// NewAligner builds the timeline over all streams and positions every cursor
// before its first frame.
func NewAligner(step float64, streams ...Stream) (*Aligner, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("aligner needs at least one stream")
	}
	series := make([]dataset.TimestampSeries, len(streams))
	states := make([]*streamState, len(streams))
	for i, s := range streams {
		if s.Source == nil {
			return nil, fmt.Errorf("stream %s has no frame source", s.Name)
		}
		if s.Width <= 0 || s.Height <= 0 {
			return nil, fmt.Errorf("stream %s has invalid size %dx%d", s.Name, s.Width, s.Height)
		}
		series[i] = s.Timestamps
		states[i] = &streamState{
			Stream: s,
			cursor: Cursor{
				Frame:       image.NewGray(image.Rect(0, 0, s.Width, s.Height)),
				Placeholder: true,
			},
		}
	}
	tl, err := NewTimeline(step, series...)
	if err != nil {
		return nil, err
	}
	return &Aligner{timeline: tl, streams: states}, nil
}

// Timeline returns the aligner's timeline.
func (a *Aligner) Timeline() Timeline {
	return a.timeline
}

// Frames advances every stream to tick t and returns the current frames in
// stream order. Ticks must be non-decreasing across calls.
func (a *Aligner) Frames(t float64) ([]*image.Gray, error) {
	if a.queried && t < a.lastTick {
		return nil, fmt.Errorf("tick %.6f is before previous tick %.6f", t, a.lastTick)
	}
	a.queried = true
	a.lastTick = t

	out := make([]*image.Gray, len(a.streams))
	for i, s := range a.streams {
		s.advance(t)
		out[i] = s.cursor.Frame
	}
	return out, nil
}

func (s *streamState) advance(t float64) {
	for !s.cursor.Exhausted && s.cursor.Index < len(s.Timestamps) && s.Timestamps[s.cursor.Index] < t {
		s.cursor.Index++
		img, err := s.Source.Next()
		if err != nil {
			s.cursor.Exhausted = true
			if !errors.Is(err, io.EOF) {
				s.err = fmt.Errorf("stream %s frame %d: %w", s.Name, s.cursor.Index-1, err)
				monitoring.Logf("%v; holding last frame", s.err)
			}
			return
		}
		s.cursor.Frame = img
		s.cursor.Placeholder = false
	}
}

// Run calls fn for every tick in order with the aligned frames. It stops at
// the first error from fn or when ctx is cancelled.
func (a *Aligner) Run(ctx context.Context, fn func(k int, t float64, frames []*image.Gray) error) error {
	for k := 0; k < a.timeline.Len; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := a.timeline.Tick(k)
		frames, err := a.Frames(t)
		if err != nil {
			return err
		}
		if err := fn(k, t, frames); err != nil {
			return err
		}
	}
	return nil
}

// Cursor returns a copy of the i-th stream's cursor.
func (a *Aligner) Cursor(i int) Cursor {
	return a.streams[i].cursor
}

// Err returns the decode errors seen so far, one per failed stream.
func (a *Aligner) Err() error {
	var errs []error
	for _, s := range a.streams {
		if s.err != nil {
			errs = append(errs, s.err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every frame source.
func (a *Aligner) Close() error {
	var errs []error
	for _, s := range a.streams {
		if err := s.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
