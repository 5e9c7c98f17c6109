// Package visualize renders one sequence as a 2x2 composite video: the three
// streams are aligned onto a uniform timeline and composed tick by tick.
package visualize

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/banshee-data/subsea.dataset/internal/align"
	"github.com/banshee-data/subsea.dataset/internal/composite"
	"github.com/banshee-data/subsea.dataset/internal/config"
	"github.com/banshee-data/subsea.dataset/internal/dataset"
	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

// Renderer holds the collaborators of a render.
type Renderer struct {
	FS       fsutil.FileSystem
	Loader   *dataset.Loader
	Opener   video.Opener
	Encoder  video.Encoder
	Analysis *config.AnalysisConfig
	// Preview, when set, snapshots the latest composite next to the output.
	Preview bool
}

// Result describes a finished render.
type Result struct {
	Output   string
	Timeline align.Timeline
	Frames   int
	// DecodeErr reports streams that stopped early; their last frame was held.
	DecodeErr error
}

// Layout returns the composite layout configured in Analysis.
func (r *Renderer) Layout() composite.Layout {
	cfg := r.analysis()
	w, h := cfg.GetSubimageSize()
	return composite.Layout{
		SubWidth:         w,
		SubHeight:        h,
		CloseRangeOffset: cfg.GetCloseRangeOffset(),
		LabelOffset:      cfg.GetLabelOffset(),
	}
}

func (r *Renderer) analysis() *config.AnalysisConfig {
	if r.Analysis == nil {
		return config.EmptyAnalysisConfig()
	}
	return r.Analysis
}

// Render writes sequenceNo to output. An unknown sequence or a missing file
// fails before any output is created. The output is finalized even when
// rendering stops early.
func (r *Renderer) Render(ctx context.Context, sequenceNo int, output string) (res Result, err error) {
	res.Output = output
	seq, err := r.Loader.Load(sequenceNo)
	if err != nil {
		return res, err
	}

	comp, err := composite.New(r.Layout())
	if err != nil {
		return res, err
	}

	streams, err := r.openStreams(ctx, seq)
	if err != nil {
		return res, err
	}
	step := r.analysis().GetStepSeconds()
	aligner, err := align.NewAligner(step, streams...)
	if err != nil {
		closeAll(streams)
		return res, err
	}
	defer func() {
		if cerr := aligner.Close(); cerr != nil {
			monitoring.Logf("closing decoders: %v", cerr)
		}
	}()
	res.Timeline = aligner.Timeline()

	// The encoder must survive cancellation so the deferred Close can
	// finalize the container.
	width, height := comp.Layout().Size()
	sink, err := r.Encoder.Create(context.WithoutCancel(ctx), output, width, height, res.Timeline.FPS())
	if err != nil {
		return res, fmt.Errorf("create %s: %w", output, err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("finalize %s: %w", output, cerr))
		}
	}()

	var preview *composite.Preview
	if r.Preview {
		preview = composite.NewPreview(r.FS, composite.PreviewPath(output), step)
	}

	monitoring.Logf("sequence %d: rendering %d ticks at %.2f fps to %s",
		sequenceNo, res.Timeline.Len, res.Timeline.FPS(), output)
	err = aligner.Run(ctx, func(k int, t float64, frames []*image.Gray) error {
		img := comp.Compose(composite.Views{Sonar: frames[0], Camera1: frames[1], Camera2: frames[2]}, t, sequenceNo)
		if err := sink.WriteFrame(img); err != nil {
			return err
		}
		res.Frames++
		if preview != nil {
			if err := preview.Observe(k, img); err != nil {
				monitoring.Logf("preview: %v", err)
			}
		}
		return nil
	})
	if res.DecodeErr = aligner.Err(); res.DecodeErr != nil {
		monitoring.Logf("sequence %d: %v", sequenceNo, res.DecodeErr)
	}
	return res, err
}

// openStreams opens sonar, camera-1 and camera-2 in that order.
func (r *Renderer) openStreams(ctx context.Context, seq *dataset.Sequence) ([]align.Stream, error) {
	layout := r.Layout()
	var streams []align.Stream
	for _, name := range []string{config.StreamSonar, config.StreamCamera1, config.StreamCamera2} {
		s := seq.Stream(name)
		if s == nil {
			closeAll(streams)
			return nil, fmt.Errorf("sequence %d has no %s stream", seq.Record.SequenceNo, name)
		}
		src, err := r.Opener.Open(ctx, s.VideoPath)
		if err != nil {
			closeAll(streams)
			return nil, &dataset.DecodeError{Path: s.VideoPath, Err: err}
		}
		w, h := layout.SubWidth, layout.SubHeight
		if sized, ok := src.(video.Sized); ok {
			w, h = sized.Info().Width, sized.Info().Height
		}
		streams = append(streams, align.Stream{
			Name:       name,
			Timestamps: s.Timestamps,
			Source:     src,
			Width:      w,
			Height:     h,
		})
	}
	return streams, nil
}

func closeAll(streams []align.Stream) {
	for _, s := range streams {
		_ = s.Source.Close()
	}
}
