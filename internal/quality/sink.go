package quality

import (
	"fmt"
	"image"
	"math"
	"path/filepath"
	"time"

	"github.com/banshee-data/subsea.dataset/internal/fsutil"
	"github.com/banshee-data/subsea.dataset/internal/monitoring"
	"github.com/banshee-data/subsea.dataset/internal/security"
	"github.com/banshee-data/subsea.dataset/internal/video"
)

// FrameRef locates a frame within the dataset.
type FrameRef struct {
	SequenceNo int
	Stream     string
	Date       time.Time
	Index      int
	// Timestamp is NaN for frames the timestamp file does not list.
	Timestamp float64
}

// untimed replaces the timestamp of frames without one.
const untimed = "untimed"

func (r FrameRef) timestamp() string {
	if math.IsNaN(r.Timestamp) || math.IsInf(r.Timestamp, 0) {
		return untimed
	}
	return fmt.Sprintf("%.3f", r.Timestamp)
}

// AnomalySink records flagged frames: one warning-log entry per finding and
// one PNG dump of the frame per finding.
type AnomalySink struct {
	fsys   fsutil.FileSystem
	dir    string
	log    *monitoring.WarningLog
	dumped int
}

// NewAnomalySink writes dumps under dir. An empty dir disables dumps.
func NewAnomalySink(fsys fsutil.FileSystem, dir string, log *monitoring.WarningLog) *AnomalySink {
	return &AnomalySink{fsys: fsys, dir: dir, log: log}
}

// Dumped returns the number of frames written.
func (s *AnomalySink) Dumped() int {
	return s.dumped
}

// Report logs and dumps every finding for the frame.
func (s *AnomalySink) Report(ref FrameRef, img image.Image, findings []Finding) error {
	for _, f := range findings {
		err := s.log.Warnf("sequence %d %s frame %d at %s is %s (%s %.3f)",
			ref.SequenceNo, ref.Stream, ref.Index, ref.timestamp(), f.Flag.Describe(), f.Flag.Metric(), f.Value)
		if err != nil {
			return err
		}
		if s.dir == "" {
			continue
		}
		path := filepath.Join(s.dir, AnomalyFilename(ref, f))
		if err := video.WritePNG(s.fsys, path, img); err != nil {
			return fmt.Errorf("dump anomaly frame: %w", err)
		}
		s.dumped++
	}
	return nil
}

// AnomalyFilename names a frame dump:
// <stream>_<date>_seq<N>_frame<k>_<timestamp>_<flag>_<value>.png.
func AnomalyFilename(ref FrameRef, f Finding) string {
	name := fmt.Sprintf("%s_%s_seq%d_frame%d_%s_%s_%.2f",
		ref.Stream, ref.Date.UTC().Format("20060102T150405"), ref.SequenceNo, ref.Index, ref.timestamp(), f.Flag, f.Value)
	return security.SanitizeFilename(name) + ".png"
}
